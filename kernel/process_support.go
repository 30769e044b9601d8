package kernel

import (
	"rtcore/kernel/config"
	"rtcore/kernel/port"
	"rtcore/kernel/process"
	"rtcore/kernel/thread"
)

// LoadProcess allocates a process image from the HAL's image pool,
// configures its MPU region, and schedules entry to run on the process's
// userspace frame at priority on core. It is only available on a build
// with kernel/config.WithProcesses set and a HAL that advertises an
// ImagePool; any other build returns ErrProcessesDisabled, the same way
// a real port without an MMU/MPU would refuse to load a process image at
// all rather than run it unprotected.
func (k *Kernel) LoadProcess(imageSize, priority, core int, entry func(proc *process.Process)) (*process.Process, error) {
	if k.procs == nil {
		return nil, ErrProcessesDisabled
	}
	kernelStack := make([]byte, config.SystemModeProcessStackSize)
	userStack := make([]byte, config.StackMin)
	proc, err := k.procs.Load(imageSize, kernelStack, userStack)
	if err != nil {
		return nil, err
	}

	t := thread.New(k.allocID(), "process", priority, core, proc.UserFrame())
	proc.SetMainThread(t)

	proc.UserFrame().Start(func() { entry(proc) })

	k.threadsMu.Lock()
	k.threads[t.ID] = t
	k.threadsMu.Unlock()

	g := k.irq.Acquire(core)
	t.SetState(thread.Ready)
	k.pol.PKaddThread(t)
	g.Release()

	return proc, nil
}

// WaitProcess blocks until proc exits, returning its status. It does not
// reap the process's image; call ReapProcess once the caller is done
// inspecting the status, the same two-step shutdown a real waitpid(2)
// plus an explicit resource release would need.
func (k *Kernel) WaitProcess(proc *process.Process) process.ExitStatus {
	return proc.Wait()
}

// ReapProcess releases proc's image block and frees its slot for reuse.
// Calling it before proc has exited is a no-op, matching Pool.Reap.
func (k *Kernel) ReapProcess(proc *process.Process) {
	if k.procs == nil {
		return
	}
	k.procs.Reap(proc)
}

// ReportProcessFault translates a raw fault observed while proc's user
// frame was executing into its exit status and terminates its main
// thread, for the CPU port's fault trap to call once it has decoded which
// process owned the faulting frame.
func (k *Kernel) ReportProcessFault(proc *process.Process, info port.FaultInfo) process.ExitStatus {
	status := proc.TranslateFault(info)
	if t := proc.MainThread(); t != nil {
		t.Exit(thread.ExitInfo{Signaled: true})
	}
	return status
}
