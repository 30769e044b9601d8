//go:build sched_edf

package kernel

import "rtcore/kernel/sched/edf"

func newPolicy() policy { return edf.New() }
