//go:build sched_control

package kernel

import "rtcore/kernel/sched/control"

func newPolicy() policy { return control.New() }
