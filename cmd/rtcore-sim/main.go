//go:build !tinygo

// Command rtcore-sim is a host-only scheduler visualizer: it boots the
// kernel against the host HAL and draws one colored bar per thread,
// refreshed every frame from kernel.Kernel.Snapshot, so the effect of a
// scheduling policy choice (priority / EDF / control-theoretic, selected
// at build time by kernel's sched_edf/sched_control tags) is visible
// without attaching a debugger. Grounded on the teacher's hal/host_window
// ebiten game loop, aimed at kernel.Kernel state instead of a
// framebuffer.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"rtcore/app"
	"rtcore/hal"
	"rtcore/kernel"
	"rtcore/kernel/thread"
)

const (
	screenW = 640
	screenH = 480
	rowH    = 18
)

type visualizer struct {
	k *kernel.Kernel
}

func (v *visualizer) Update() error { return nil }

func (v *visualizer) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 18, G: 18, B: 22, A: 255})

	snap := v.k.Snapshot()
	y := float32(8)
	for _, t := range snap {
		barColor := colorForState(t.State)
		vector.DrawFilledRect(screen, 8, y, 24+float32(t.Priority)*6, rowH-4, barColor, false)
		label := fmt.Sprintf("core %d  pri %-3d  %-8s  %s", t.Core, t.Priority, t.State, t.Name)
		ebitenutil.DebugPrintAt(screen, label, 200, int(y))
		y += rowH
		if int(y) > screenH-rowH {
			break
		}
	}
}

func (v *visualizer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}

func colorForState(s thread.State) color.RGBA {
	switch s.String() {
	case "running":
		return color.RGBA{R: 60, G: 200, B: 90, A: 255}
	case "ready":
		return color.RGBA{R: 80, G: 140, B: 220, A: 255}
	case "waiting":
		return color.RGBA{R: 220, G: 80, B: 60, A: 255}
	case "sleeping":
		return color.RGBA{R: 200, G: 170, B: 60, A: 255}
	case "deleting", "deleted":
		return color.RGBA{R: 90, G: 90, B: 90, A: 255}
	default:
		return color.RGBA{R: 140, G: 140, B: 140, A: 255}
	}
}

func main() {
	workers := flag.Int("workers", app.DefaultConfig.Workers, "demo worker threads to schedule")
	flag.Parse()

	h := hal.New()
	sys := app.Boot(h, app.Config{Workers: *workers})

	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("rtcore scheduler visualizer")
	if err := ebiten.RunGame(&visualizer{k: sys.Kernel}); err != nil {
		log.Fatal(err)
	}
}
