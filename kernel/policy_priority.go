//go:build !sched_edf && !sched_control

package kernel

import "rtcore/kernel/sched/priority"

func newPolicy() policy { return priority.New() }
