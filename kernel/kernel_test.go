package kernel

import (
	"testing"
	"time"

	"rtcore/hal"
	"rtcore/kernel/port"
)

// rebootRecorder wraps a real hal.InterruptController and replaces only
// SystemReboot: the host HAL's real implementation calls os.Exit, which
// would kill the test binary instead of the simulated core.
type rebootRecorder struct {
	hal.InterruptController
	rebooted chan struct{}
}

func (r *rebootRecorder) SystemReboot() {
	select {
	case r.rebooted <- struct{}{}:
	default:
	}
}

type testHAL struct {
	hal.HAL
	ic *rebootRecorder
}

func (h *testHAL) Interrupts() hal.InterruptController { return h.ic }

func newTestHAL() *testHAL {
	real := hal.New()
	return &testHAL{
		HAL: real,
		ic:  &rebootRecorder{InterruptController: real.Interrupts(), rebooted: make(chan struct{}, 1)},
	}
}

func newTestKernel() *Kernel {
	k := New(newTestHAL())
	go k.Start()
	return k
}

func TestThreadLifecycle(t *testing.T) {
	k := newTestKernel()

	ran := make(chan struct{})
	th := k.CreateThread("worker", 1, 0, 0, func() {
		close(ran)
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("created thread never ran")
	}

	info, err := k.Join(th)
	if err != nil {
		t.Fatalf("Join = %v", err)
	}
	if info.Code != 0 || info.Signaled {
		t.Fatalf("ExitInfo = %+v, want a clean exit", info)
	}
}

func TestYieldReturnsControlToDispatcher(t *testing.T) {
	k := newTestKernel()

	var yields int
	done := make(chan struct{})
	k.CreateThread("yielder", 1, 0, 0, func() {
		for yields < 3 {
			yields++
			k.Yield(k.Current(0))
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("yielding thread never finished")
	}
	if yields != 3 {
		t.Fatalf("yields = %d, want 3", yields)
	}
}

func TestSleepWakesAfterDuration(t *testing.T) {
	k := newTestKernel()

	woke := make(chan time.Time, 1)
	start := time.Now()
	k.CreateThread("sleeper", 1, 0, 0, func() {
		k.Sleep(k.Current(0), 30*time.Millisecond)
		woke <- time.Now()
	})

	select {
	case at := <-woke:
		if at.Sub(start) < 20*time.Millisecond {
			t.Fatalf("woke after %v, want at least ~30ms", at.Sub(start))
		}
	case <-time.After(time.Second):
		t.Fatal("sleeping thread never woke")
	}
}

func TestDetachDiscardsExitStatusAndJoinFails(t *testing.T) {
	k := newTestKernel()

	done := make(chan struct{})
	th := k.CreateThread("detached", 1, 0, 0, func() { close(done) })
	k.Detach(th)

	<-done
	time.Sleep(10 * time.Millisecond) // let the dispatcher observe the exit

	if _, err := k.Join(th); err != ErrAlreadyJoined {
		t.Fatalf("Join on a detached thread = %v, want ErrAlreadyJoined", err)
	}
}

func TestRequestTerminateIsObservedCooperatively(t *testing.T) {
	k := newTestKernel()

	stopped := make(chan struct{})
	th := k.CreateThread("cooperative", 1, 0, 0, func() {
		self := k.Current(0)
		for !k.TestTerminate(self) {
			k.Yield(self)
		}
		close(stopped)
	})

	time.Sleep(5 * time.Millisecond)
	k.RequestTerminate(th)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("thread never observed RequestTerminate")
	}
}

func TestPriorityInversionAvoidance(t *testing.T) {
	k := newTestKernel()
	m := k.NewMutex()

	lowEntered := make(chan struct{})
	lowDone := make(chan struct{})
	k.CreateThread("low", 1, 0, 0, func() {
		self := k.Current(0)
		m.Lock(self)
		close(lowEntered)
		// Hold the lock long enough for a high-priority waiter to queue
		// and boost this thread's priority before releasing it.
		time.Sleep(50 * time.Millisecond)
		m.Unlock(self)
		close(lowDone)
	})
	<-lowEntered

	highDone := make(chan struct{})
	k.CreateThread("high", 10, 0, 0, func() {
		self := k.Current(0)
		m.Lock(self)
		m.Unlock(self)
		close(highDone)
	})

	select {
	case <-highDone:
	case <-time.After(2 * time.Second):
		t.Fatal("high-priority waiter never acquired the mutex")
	}
	<-lowDone
}

func TestSemaphoreFIFOThroughTheDispatcher(t *testing.T) {
	k := newTestKernel()
	s := k.NewSemaphore(0)

	order := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		k.CreateThread("waiter", 1, 0, 0, func() {
			s.Wait(k.Current(0))
			order <- i
		})
		time.Sleep(10 * time.Millisecond) // queue in a known order
	}

	s.Signal()
	s.Signal()
	s.Signal()

	var got []int
	for i := 0; i < 3; i++ {
		select {
		case v := <-order:
			got = append(got, v)
		case <-time.After(time.Second):
			t.Fatal("a semaphore waiter never woke")
		}
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("wakeup order = %v, want [0 1 2] (FIFO)", got)
		}
	}
}

func TestFatalStackOverflowReportsAndReboots(t *testing.T) {
	// fatalOnce is package-global and already fired by construction in
	// other tests that share this binary only if they also hit a fatal
	// path; this test drives it directly rather than through a corrupted
	// watermark, since a goroutine's real stack can't be overwritten from
	// outside kernel/port the way a Cortex-M stack can.
	th := newTestHAL()
	k := New(th)

	var gotClass port.FaultClass
	var gotName string
	SetFatalHandler(func(info FatalInfo) {
		gotClass = info.Class
		gotName = info.ThreadName
	})

	victim := k.CreateThread("doomed", 1, 0, 0, func() {})
	k.fatalStackOverflow(victim)

	select {
	case <-th.ic.rebooted:
	case <-time.After(time.Second):
		t.Fatal("fatalStackOverflow never called Interrupts().SystemReboot()")
	}

	if !InFatalMode() {
		t.Fatal("InFatalMode should be true after a fatal condition")
	}
	if gotClass != port.FaultStackOverflow {
		t.Fatalf("fatal class = %v, want FaultStackOverflow", gotClass)
	}
	if gotName != "doomed" {
		t.Fatalf("fatal thread name = %q, want %q", gotName, "doomed")
	}
}
