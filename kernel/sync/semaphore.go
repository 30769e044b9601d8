package sync

import (
	"sync"
	"time"

	"rtcore/kernel/thread"
)

// Semaphore is a FIFO-ordered counting semaphore. Signal/Wait follow
// strict first-in-first-out wakeup order rather than priority order,
// matching spec.md §4.G's "semaphore waiters are served FIFO, unlike the
// priority-ordered mutex waiters."
type Semaphore struct {
	ctrl Scheduler

	mu      sync.Mutex
	count   int
	waiters []*thread.Thread

	// hppw ("highest priority pending wakeup") mirrors the flag the
	// teacher's IRQ-context mailbox send sets to defer a same-priority
	// reschedule to the next safe point instead of yielding from inside
	// an interrupt handler.
	hppw bool
}

// NewSemaphore builds a counting semaphore starting at count, managed
// through ctrl.
func NewSemaphore(count int, ctrl Scheduler) *Semaphore {
	if count < 0 {
		count = 0
	}
	return &Semaphore{count: count, ctrl: ctrl}
}

// Wait blocks self until the count is positive, then consumes one unit.
func (s *Semaphore) Wait(self *thread.Thread) {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return
	}
	s.waiters = append(s.waiters, self)
	s.mu.Unlock()
	s.ctrl.ParkSelf(self)
}

// TimedWait blocks self until the count is positive or timeout elapses,
// reporting whether it consumed a unit (true) or timed out (false).
func (s *Semaphore) TimedWait(self *thread.Thread, timeout time.Duration) bool {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return true
	}
	s.waiters = append(s.waiters, self)
	s.mu.Unlock()

	deadline := s.ctrl.NowNS() + uint64(timeout.Nanoseconds())
	woke := s.ctrl.ParkSelfUntil(self, deadline)
	if !woke {
		s.removeWaiter(self)
	}
	return woke
}

func (s *Semaphore) removeWaiter(self *thread.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.waiters {
		if t == self {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// TryWait consumes one unit without blocking if available.
func (s *Semaphore) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// Signal releases one unit, waking the longest-waiting blocked thread if
// any, otherwise incrementing the count for a future Wait.
func (s *Semaphore) Signal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signalLocked()
}

func (s *Semaphore) signalLocked() {
	for len(s.waiters) > 0 {
		t := s.waiters[0]
		s.waiters = s.waiters[1:]
		if s.ctrl.Wake(t) {
			return
		}
		// t already left via a racing TimedWait timeout; the unit is
		// still owed to whoever is next.
	}
	s.count++
}

// IRQsignal is Signal's interrupt-context counterpart: safe to call from
// a timer or device ISR. It never blocks and defers anything that would
// require a reschedule decision by setting hppw, for the kernel's
// end-of-ISR epilogue to act on instead of switching threads from inside
// the handler itself.
func (s *Semaphore) IRQsignal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.waiters) > 0 {
		s.hppw = true
	}
	s.signalLocked()
}

// TakeHPPW reports and clears whether an IRQsignal woke a waiter since
// the last call, for the scheduler's ISR epilogue to decide whether a
// reschedule is due.
func (s *Semaphore) TakeHPPW() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.hppw
	s.hppw = false
	return v
}

// Count returns the current available count (0 while threads are
// waiting).
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
