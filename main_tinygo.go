//go:build tinygo

package main

import (
	"rtcore/app"
	"rtcore/hal"
)

func main() {
	app.Run(hal.New())
}

