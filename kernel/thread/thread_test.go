package thread

import (
	"testing"
	"time"

	"rtcore/kernel/port"
)

func newTestThread(id ID, priority, core int) *Thread {
	frame := port.NewFrame(make([]byte, 64), false)
	return New(id, "test", priority, core, frame)
}

func TestStateTransitions(t *testing.T) {
	th := newTestThread(1, 0, 0)
	if got := th.State(); got != Dormant {
		t.Fatalf("new thread state = %s, want dormant", got)
	}
	th.SetState(Ready)
	if got := th.State(); got != Ready {
		t.Fatalf("state = %s, want ready", got)
	}
	// Any non-Deleted state may move to Deleting.
	th.SetState(Deleting)
	if got := th.State(); got != Deleting {
		t.Fatalf("state = %s, want deleting", got)
	}
}

func TestFlags(t *testing.T) {
	th := newTestThread(1, 0, 0)
	if th.HasFlag(FlagDetached) {
		t.Fatal("fresh thread should have no flags set")
	}
	th.SetFlag(FlagDetached)
	if !th.HasFlag(FlagDetached) {
		t.Fatal("SetFlag did not take")
	}
	th.SetFlag(FlagTerminateRequested)
	if !th.HasFlag(FlagDetached) || !th.HasFlag(FlagTerminateRequested) {
		t.Fatal("flags are not independent bits")
	}
	th.ClearFlag(FlagDetached)
	if th.HasFlag(FlagDetached) {
		t.Fatal("ClearFlag did not take")
	}
	if !th.HasFlag(FlagTerminateRequested) {
		t.Fatal("ClearFlag cleared an unrelated bit")
	}
}

func TestSetWakeAtNSMovesToSleeping(t *testing.T) {
	th := newTestThread(1, 0, 0)
	th.SetState(Ready)
	th.SetWakeAtNS(1000)
	if th.State() != Sleeping {
		t.Fatalf("state after SetWakeAtNS = %s, want sleeping", th.State())
	}
	if th.WakeAtNS() != 1000 {
		t.Fatalf("WakeAtNS = %d, want 1000", th.WakeAtNS())
	}
}

func TestJoinIsASingleSlotRendezvous(t *testing.T) {
	th := newTestThread(1, 0, 0)

	firstReady := make(chan struct{})
	result := make(chan ExitInfo, 1)
	go func() {
		close(firstReady)
		info, err := th.Join()
		if err != nil {
			t.Errorf("first Join = %v, want nil error", err)
		}
		result <- info
	}()
	<-firstReady
	time.Sleep(10 * time.Millisecond) // let the first Join register

	if _, err := th.Join(); err != ErrJoinInProgress {
		t.Fatalf("second concurrent Join = %v, want ErrJoinInProgress", err)
	}

	th.Exit(ExitInfo{Code: 7})

	info := <-result
	if info.Code != 7 || info.Signaled {
		t.Fatalf("first Join() = %+v, want {Code:7}", info)
	}
	if th.State() != Deleting {
		t.Fatalf("state after Exit = %s, want deleting", th.State())
	}
}

func TestJoinAfterExitReturnsImmediately(t *testing.T) {
	th := newTestThread(1, 0, 0)
	th.Exit(ExitInfo{Signaled: true})
	info, err := th.Join()
	if err != nil {
		t.Fatalf("Join after Exit = %v, want nil error", err)
	}
	if !info.Signaled {
		t.Fatal("Join after Exit lost the recorded status")
	}
}

func TestBeginWaitAndWakeupAreRaceFreeEitherOrder(t *testing.T) {
	th := newTestThread(1, 0, 0)
	th.SetState(Running)

	// Wakeup before BeginWait: the wakeup must still be observed.
	if woke := th.Wakeup(); woke {
		t.Fatal("Wakeup on a not-yet-waiting thread should report false (latched, not delivered)")
	}
	if shouldPark := th.BeginWait(); shouldPark {
		t.Fatal("BeginWait should consume the pending wakeup and report false")
	}

	// BeginWait before Wakeup: the normal order.
	th.SetState(Running)
	if shouldPark := th.BeginWait(); !shouldPark {
		t.Fatal("BeginWait with no pending wakeup should report true")
	}
	if th.State() != Waiting {
		t.Fatalf("state after BeginWait = %s, want waiting", th.State())
	}
	if woke := th.Wakeup(); !woke {
		t.Fatal("Wakeup on a waiting thread should report true")
	}
	if th.State() != Ready {
		t.Fatalf("state after Wakeup = %s, want ready", th.State())
	}
}

func TestEndTimedWaitReportsExplicitWakeupVsDeadline(t *testing.T) {
	th := newTestThread(1, 0, 0)
	th.SetState(Running)

	th.BeginTimedWait(1000)
	th.Wakeup()
	if !th.EndTimedWait() {
		t.Fatal("EndTimedWait after an explicit Wakeup should report true")
	}

	th.SetState(Running)
	th.BeginTimedWait(1000)
	th.SetState(Ready) // stands in for the sleep queue's own expiry path
	if th.EndTimedWait() {
		t.Fatal("EndTimedWait with no Wakeup should report false")
	}
}

func TestStackOKReflectsWatermark(t *testing.T) {
	stack := make([]byte, 64)
	frame := port.NewFrame(stack, false)
	th := New(1, "test", 0, 0, frame)
	if !th.StackOK() {
		t.Fatal("freshly stamped stack should report OK")
	}
	stack[0] = 0xFF
	if th.StackOK() {
		t.Fatal("corrupted watermark should report not OK")
	}
}

func TestAddRanNSAccumulates(t *testing.T) {
	th := newTestThread(1, 0, 0)
	th.AddRanNS(100)
	th.AddRanNS(50)
	if got := th.RanNS(); got != 150 {
		t.Fatalf("RanNS() = %d, want 150", got)
	}
}
