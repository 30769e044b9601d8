package sync

import (
	"sync"
	"time"

	"rtcore/kernel/thread"
)

// CondVar is a condition variable paired with a Mutex, the same
// wait/release-then-reacquire contract as sync.Cond, but with an explicit
// timed wait for the kernel's sleep-with-timeout operations.
type CondVar struct {
	m    *Mutex
	ctrl Scheduler

	mu      sync.Mutex
	waiters []*thread.Thread
}

// NewCondVar builds a condition variable associated with m, managed
// through ctrl. Wait always releases m before blocking and reacquires it
// before returning, exactly as Mutex.Lock/Unlock expect.
func NewCondVar(m *Mutex, ctrl Scheduler) *CondVar {
	return &CondVar{m: m, ctrl: ctrl}
}

// Wait blocks self on the condition, releasing m for the duration and
// reacquiring it (to the same recursion depth) before returning.
func (c *CondVar) Wait(self *thread.Thread) {
	c.mu.Lock()
	c.waiters = append(c.waiters, self)
	c.mu.Unlock()

	c.m.Unlock(self)
	c.ctrl.ParkSelf(self)
	c.m.Lock(self)
}

// TimedWait blocks self on the condition for at most timeout, reporting
// whether it woke because of a Signal/Broadcast (true) or because the
// timeout elapsed (false). Either way m is reacquired before returning.
func (c *CondVar) TimedWait(self *thread.Thread, timeout time.Duration) bool {
	c.mu.Lock()
	c.waiters = append(c.waiters, self)
	c.mu.Unlock()

	c.m.Unlock(self)
	deadline := c.ctrl.NowNS() + uint64(timeout.Nanoseconds())
	woke := c.ctrl.ParkSelfUntil(self, deadline)
	if !woke {
		c.removeWaiter(self)
	}
	c.m.Lock(self)
	return woke
}

func (c *CondVar) removeWaiter(self *thread.Thread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.waiters {
		if t == self {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// Signal wakes at most one waiter.
func (c *CondVar) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.waiters) > 0 {
		t := c.waiters[0]
		c.waiters = c.waiters[1:]
		if c.ctrl.Wake(t) {
			return
		}
		// t already left via a racing TimedWait timeout; try the next.
	}
}

// Broadcast wakes every current waiter.
func (c *CondVar) Broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.waiters {
		c.ctrl.Wake(t) // a false return just means a timeout already woke it
	}
	c.waiters = nil
}
