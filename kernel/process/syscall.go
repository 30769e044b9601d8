package process

import "rtcore/kernel/port"

// Number identifies a syscall; the process ABI is intentionally tiny,
// matching spec.md §4.F's minimal syscall surface rather than a full
// POSIX-shaped table.
type Number uint16

const (
	SysExit Number = iota
	SysYield
	SysSleepNS
	SysWriteLog
)

// Syscall is the snapshot taken at SVC entry: the syscall number and up
// to four argument registers, copied out exactly once. The process's
// userspace frame keeps running concurrently with nothing stopping it
// from overwriting its own registers the instant the SVC instruction
// retires, so every field the kernel will act on must be read here and
// nowhere else; re-reading "live" argument registers later would be a
// time-of-check-to-time-of-use race between the kernel's validation and
// the process's next instruction.
type Syscall struct {
	No   Number
	Args [4]uintptr
}

// EnterSyscall captures the single-peek snapshot at the SVC boundary.
// Everything the kernel needs from the faulting context has to come out
// of regs before this function returns.
func EnterSyscall(no Number, regs [4]uintptr) Syscall {
	return Syscall{No: no, Args: regs}
}

// ValidateBuffer checks that a process-supplied (pointer, length) syscall
// argument lies entirely inside proc's MPU region with the requested
// permission, using the same snapshot rather than re-reading the
// process's registers, so a second thread in the same process can't
// shrink or move the buffer between the check and the use.
func (proc *Process) ValidateBuffer(ptr uintptr, length uintptr, need port.Perm) bool {
	if length == 0 {
		return true
	}
	return proc.mpu.Check(ptr, need) && proc.mpu.Check(ptr+length-1, need)
}

// TranslateFault converts a raw fault observed while this process's user
// frame was executing into the ExitStatus its waiter will see, and records
// it with Exit. It does not touch the main thread; the kernel's fault path
// exits that thread itself. The image and slot are not
// freed here; that is Pool.Reap's job once the waiter has observed the
// status, so a waitpid-style caller always has something to read.
func (proc *Process) TranslateFault(info port.FaultInfo) ExitStatus {
	class := port.Decode(info)
	status := Signaled(class)
	proc.Exit(status)
	return status
}
