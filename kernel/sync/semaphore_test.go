package sync

import (
	"testing"
	"time"

	"rtcore/kernel/thread"
)

func TestSemaphoreWaitConsumesAvailableUnit(t *testing.T) {
	s := NewSemaphore(1, newFakeScheduler())
	a := newThread(1, 1)
	done := make(chan struct{})
	go func() {
		s.Wait(a)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait should return immediately when a unit is available")
	}
	if s.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", s.Count())
	}
}

func TestSemaphoreTryWait(t *testing.T) {
	s := NewSemaphore(0, newFakeScheduler())
	if s.TryWait() {
		t.Fatal("TryWait should fail with count 0")
	}
	s.Signal()
	if !s.TryWait() {
		t.Fatal("TryWait should succeed once a unit is available")
	}
}

func TestSemaphoreFIFOWakeupOrder(t *testing.T) {
	s := NewSemaphore(0, newFakeScheduler())
	order := make(chan int, 3)

	for i := 0; i < 3; i++ {
		i := i
		self := newThread(thread.ID(i+1), 1)
		go func() {
			// Stagger registration so waiters queue in a known order.
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			s.Wait(self)
			order <- i
		}()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(80 * time.Millisecond) // let all three queue up

	s.Signal()
	s.Signal()
	s.Signal()

	var got []int
	for i := 0; i < 3; i++ {
		select {
		case v := <-order:
			got = append(got, v)
		case <-time.After(time.Second):
			t.Fatal("a waiter never woke")
		}
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("wakeup order = %v, want [0 1 2] (FIFO)", got)
		}
	}
}

func TestIRQsignalSetsHPPW(t *testing.T) {
	s := NewSemaphore(0, newFakeScheduler())
	a := newThread(1, 1)
	done := make(chan struct{})
	go func() {
		s.Wait(a)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	s.IRQsignal()
	<-done

	if !s.TakeHPPW() {
		t.Fatal("IRQsignal waking a waiter should set the HPPW flag")
	}
	if s.TakeHPPW() {
		t.Fatal("TakeHPPW should clear the flag after reading it")
	}
}

func TestIRQsignalWithNoWaitersDoesNotSetHPPW(t *testing.T) {
	s := NewSemaphore(0, newFakeScheduler())
	s.IRQsignal()
	if s.TakeHPPW() {
		t.Fatal("IRQsignal with no waiters should not set HPPW")
	}
	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
}
