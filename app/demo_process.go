package app

import (
	"time"

	"rtcore/kernel"
	"rtcore/kernel/port"
	"rtcore/kernel/process"
)

// scheduleDemoProcess loads one MPU-isolated demo process, if this build
// was configured with kernel/config.WithProcesses (LoadProcess returns
// ErrProcessesDisabled otherwise and this is a no-op). It crosses the
// syscall boundary to write a log line, has a second syscall rejected by
// ValidateBuffer for reaching outside its image, sleeps, then exits
// normally, exercising the userspace/MPU transition path on every boot
// rather than leaving it unused behind its build tag.
func scheduleDemoProcess(k *kernel.Kernel) {
	const imageSize = 256
	message := []byte("hello from userspace\n")

	proc, err := k.LoadProcess(imageSize, 2, 0, func(proc *process.Process) {
		n := copy(proc.Image(), message)
		ptr := proc.ImageAddr()

		call := process.EnterSyscall(process.SysWriteLog, [4]uintptr{ptr, uintptr(n), 0, 0})
		if proc.ValidateBuffer(call.Args[0], call.Args[1], port.PermRead) {
			k.Logger().WriteLineBytes(proc.Image()[:n])
		}

		badCall := process.EnterSyscall(process.SysWriteLog, [4]uintptr{ptr, uintptr(imageSize) + 4096, 0, 0})
		if !proc.ValidateBuffer(badCall.Args[0], badCall.Args[1], port.PermRead) {
			k.Logger().WriteLineString("rtcore: demo process rejected an out-of-bounds syscall buffer")
		}

		sleepCall := process.EnterSyscall(process.SysSleepNS, [4]uintptr{uintptr(5 * time.Millisecond), 0, 0, 0})
		k.Sleep(proc.MainThread(), time.Duration(sleepCall.Args[0]))

		process.EnterSyscall(process.SysExit, [4]uintptr{0, 0, 0, 0})
		proc.Exit(process.Normal(0))
	})
	if err != nil {
		return
	}

	go func() {
		k.WaitProcess(proc)
		k.ReapProcess(proc)
	}()
}
