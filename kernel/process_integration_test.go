//go:build with_processes

package kernel

import (
	"testing"
	"time"

	"rtcore/kernel/port"
	"rtcore/kernel/process"
)

func TestLoadProcessRunsThroughTheDispatcher(t *testing.T) {
	k := newTestKernel()

	message := []byte("hello from userspace")
	logged := make(chan string, 1)

	proc, err := k.LoadProcess(256, 2, 0, func(proc *process.Process) {
		n := copy(proc.Image(), message)
		ptr := proc.ImageAddr()

		call := process.EnterSyscall(process.SysWriteLog, [4]uintptr{ptr, uintptr(n), 0, 0})
		if proc.ValidateBuffer(call.Args[0], call.Args[1], port.PermRead) {
			logged <- string(proc.Image()[:n])
		}

		process.EnterSyscall(process.SysExit, [4]uintptr{0, 0, 0, 0})
		proc.Exit(process.Normal(7))
	})
	if err != nil {
		t.Fatalf("LoadProcess: %v", err)
	}

	select {
	case got := <-logged:
		if got != string(message) {
			t.Fatalf("logged %q, want %q", got, message)
		}
	case <-time.After(time.Second):
		t.Fatal("process never reached its write-log syscall")
	}

	status := k.WaitProcess(proc)
	code, ok := status.Exited()
	if !ok || code != 7 {
		t.Fatalf("WaitProcess = (%d, %v), want (7, true)", code, ok)
	}

	k.ReapProcess(proc)
}

func TestLoadProcessRejectsOutOfBoundsSyscallBuffer(t *testing.T) {
	k := newTestKernel()

	result := make(chan bool, 1)
	proc, err := k.LoadProcess(64, 2, 0, func(proc *process.Process) {
		ptr := proc.ImageAddr()
		badCall := process.EnterSyscall(process.SysWriteLog, [4]uintptr{ptr, uintptr(len(proc.Image())) + 4096, 0, 0})
		result <- proc.ValidateBuffer(badCall.Args[0], badCall.Args[1], port.PermRead)
		proc.Exit(process.Normal(0))
	})
	if err != nil {
		t.Fatalf("LoadProcess: %v", err)
	}

	select {
	case ok := <-result:
		if ok {
			t.Fatal("a buffer reaching past the process image should fail validation")
		}
	case <-time.After(time.Second):
		t.Fatal("process never reached its out-of-bounds syscall")
	}

	k.WaitProcess(proc)
	k.ReapProcess(proc)
}

func TestReportProcessFaultSignalsWaiterAndMainThread(t *testing.T) {
	k := newTestKernel()

	entered := make(chan struct{})
	proc, err := k.LoadProcess(64, 2, 0, func(proc *process.Process) {
		close(entered)
		// Returns without calling proc.Exit: a real MPU violation traps
		// into the kernel rather than the process reporting its own
		// status, so the process is still "alive" (no status recorded)
		// by the time the fault is reported from outside.
	})
	if err != nil {
		t.Fatalf("LoadProcess: %v", err)
	}
	<-entered
	time.Sleep(10 * time.Millisecond) // let the dispatcher finish this pass

	status := k.ReportProcessFault(proc, port.FaultInfo{StackOverflow: true})
	class, signaled := status.Signal()
	if !signaled || class != port.FaultStackOverflow {
		t.Fatalf("ReportProcessFault status = (%v, %v), want (FaultStackOverflow, true)", class, signaled)
	}

	waited := k.WaitProcess(proc)
	waitedClass, waitedSignaled := waited.Signal()
	if !waitedSignaled || waitedClass != port.FaultStackOverflow {
		t.Fatalf("WaitProcess after a fault = (%v, %v), want (FaultStackOverflow, true)", waitedClass, waitedSignaled)
	}
}
