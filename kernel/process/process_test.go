package process

import (
	"testing"

	"rtcore/hal"
	"rtcore/kernel/port"
)

func TestLoadConfiguresMPURegion(t *testing.T) {
	pool := NewPool(hal.New().ImagePool())
	proc, err := pool.Load(64, make([]byte, 256), make([]byte, 256))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !proc.MPU().Enabled() {
		t.Fatal("Load should configure and enable the process's MPU region")
	}
	if !proc.ValidateBuffer(proc.ImageAddr(), 8, port.PermRead) {
		t.Fatal("a buffer entirely inside the image should validate")
	}
}

func TestValidateBufferRejectsOutOfBounds(t *testing.T) {
	pool := NewPool(hal.New().ImagePool())
	proc, err := pool.Load(64, make([]byte, 256), make([]byte, 256))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if proc.ValidateBuffer(proc.ImageAddr(), uintptr(len(proc.Image()))+4096, port.PermRead) {
		t.Fatal("a buffer reaching past the image should be rejected")
	}
	if proc.ValidateBuffer(proc.ImageAddr()-1, 4, port.PermRead) {
		t.Fatal("a buffer starting before the image should be rejected")
	}
}

func TestWaitBlocksUntilExit(t *testing.T) {
	pool := NewPool(hal.New().ImagePool())
	proc, err := pool.Load(64, make([]byte, 256), make([]byte, 256))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	done := make(chan ExitStatus)
	go func() { done <- proc.Wait() }()

	proc.Exit(Normal(42))

	status := <-done
	code, ok := status.Exited()
	if !ok || code != 42 {
		t.Fatalf("Wait() = (%d, %v), want (42, true)", code, ok)
	}
}

func TestExitIsIdempotent(t *testing.T) {
	pool := NewPool(hal.New().ImagePool())
	proc, err := pool.Load(64, make([]byte, 256), make([]byte, 256))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	proc.Exit(Normal(1))
	proc.Exit(Normal(2))
	code, _ := proc.Wait().Exited()
	if code != 1 {
		t.Fatalf("Exit should keep the first recorded status, got code %d", code)
	}
}

func TestReapOnlyAfterExit(t *testing.T) {
	pool := NewPool(hal.New().ImagePool())
	proc, err := pool.Load(64, make([]byte, 256), make([]byte, 256))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pool.Reap(proc) // no-op: proc has not exited
	pool.mu.Lock()
	_, stillLive := pool.live[proc.ID]
	pool.mu.Unlock()
	if !stillLive {
		t.Fatal("Reap before exit should not drop the slot")
	}

	proc.Exit(Normal(0))
	pool.Reap(proc)
	pool.mu.Lock()
	_, stillLive = pool.live[proc.ID]
	pool.mu.Unlock()
	if stillLive {
		t.Fatal("Reap after exit should drop the slot")
	}
}

func TestTranslateFaultProducesSignaledStatus(t *testing.T) {
	pool := NewPool(hal.New().ImagePool())
	proc, err := pool.Load(64, make([]byte, 256), make([]byte, 256))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	status := proc.TranslateFault(port.FaultInfo{StackOverflow: true})
	class, signaled := status.Signal()
	if !signaled {
		t.Fatal("TranslateFault should produce a signaled exit status")
	}
	if class != port.FaultStackOverflow {
		t.Fatalf("fault class = %s, want stack-overflow", class)
	}
}

func TestSyscallSnapshotIsIndependentOfLiveArgs(t *testing.T) {
	regs := [4]uintptr{1, 2, 3, 4}
	call := EnterSyscall(SysWriteLog, regs)
	regs[0] = 99
	if call.Args[0] != 1 {
		t.Fatal("EnterSyscall must copy its argument registers, not alias them")
	}
}
