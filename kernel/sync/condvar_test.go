package sync

import (
	"testing"
	"time"
)

func TestCondVarSignalWakesOneWaiter(t *testing.T) {
	sched := newFakeScheduler()
	m := NewMutex(sched)
	c := NewCondVar(m, sched)
	a := newThread(1, 1)

	m.Lock(a)
	woke := make(chan struct{})
	go func() {
		c.Wait(a)
		close(woke)
		m.Unlock(a)
	}()

	// Wait must release m for Signal's caller to acquire it.
	time.Sleep(20 * time.Millisecond)
	b := newThread(2, 1)
	m.Lock(b)
	c.Signal()
	m.Unlock(b)

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("Signal never woke the waiter")
	}
}

func TestCondVarBroadcastWakesEveryWaiter(t *testing.T) {
	sched := newFakeScheduler()
	m := NewMutex(sched)
	c := NewCondVar(m, sched)
	a := newThread(1, 1)
	b := newThread(2, 1)

	wokeA := make(chan struct{})
	wokeB := make(chan struct{})
	m.Lock(a)
	go func() {
		c.Wait(a)
		close(wokeA)
		m.Unlock(a)
	}()
	time.Sleep(10 * time.Millisecond)

	m.Lock(b)
	go func() {
		c.Wait(b)
		close(wokeB)
		m.Unlock(b)
	}()
	time.Sleep(10 * time.Millisecond)

	owner := newThread(3, 1)
	m.Lock(owner)
	c.Broadcast()
	m.Unlock(owner)

	for _, ch := range []chan struct{}{wokeA, wokeB} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("Broadcast did not wake every waiter")
		}
	}
}

func TestCondVarTimedWaitTimesOut(t *testing.T) {
	sched := newFakeScheduler()
	m := NewMutex(sched)
	c := NewCondVar(m, sched)
	a := newThread(1, 1)

	m.Lock(a)
	woke := c.TimedWait(a, 20*time.Millisecond)
	m.Unlock(a)

	if woke {
		t.Fatal("TimedWait should report false when no Signal arrives before the timeout")
	}
}

func TestCondVarTimedWaitWokenBeforeTimeout(t *testing.T) {
	sched := newFakeScheduler()
	m := NewMutex(sched)
	c := NewCondVar(m, sched)
	a := newThread(1, 1)

	m.Lock(a)
	done := make(chan bool, 1)
	go func() {
		done <- c.TimedWait(a, time.Second)
		m.Unlock(a)
	}()
	time.Sleep(20 * time.Millisecond)

	owner := newThread(2, 1)
	m.Lock(owner)
	c.Signal()
	m.Unlock(owner)

	select {
	case woke := <-done:
		if !woke {
			t.Fatal("TimedWait should report true when woken by Signal")
		}
	case <-time.After(time.Second):
		t.Fatal("TimedWait never returned")
	}
}
