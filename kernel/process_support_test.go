//go:build !with_processes

package kernel

import (
	"testing"

	"rtcore/kernel/process"
)

// Default builds carry kernel/config.WithProcesses = false, so the
// facade's process path must refuse rather than silently no-op.
func TestLoadProcessDisabledByDefault(t *testing.T) {
	k := newTestKernel()
	if _, err := k.LoadProcess(64, 1, 0, func(_ *process.Process) {}); err != ErrProcessesDisabled {
		t.Fatalf("LoadProcess on a with_processes=false build = %v, want ErrProcessesDisabled", err)
	}
}
