// Package sync implements the three kernel synchronization primitives of
// spec.md §4.G: a recursive priority-inheritance Mutex with deadlock-cycle
// detection, a CondVar, and a FIFO-ordered counting Semaphore with an
// IRQ-safe signal path. Grounded on the andypeng2015-tinygo scheduler's
// lockFutex/unlockFutex wait-queue shape and newacorn-go's spin-then-block
// lock2 idiom for the fast path.
package sync

import (
	"errors"
	"sort"
	"sync"

	"rtcore/kernel/thread"
)

// ErrDeadlock is returned by Lock when the wait-for graph formed by taking
// this mutex would create a cycle back to the calling thread.
var ErrDeadlock = errors.New("sync: lock would deadlock")

// Scheduler is the hook all three kernel/sync primitives use to reach the
// real scheduler: raising/restoring a mutex owner's priority, and taking
// a thread off (and back onto) the ready queue around a wait instead of
// blocking its goroutine on a raw channel. Blocking on a raw channel
// would permanently wedge the calling thread's core, since
// kernel.Kernel's dispatcher loop only moves on to the next ready thread
// once the current one's port.Frame.Dispatch returns, and Dispatch only
// returns once the dispatched thread parks itself or its entry returns.
// It is a narrow interface rather than a direct kernel import, so
// kernel/sync has no dependency on which scheduling policy is compiled in
// or on the kernel package itself (kernel imports kernel/sync, not the
// other way around).
type Scheduler interface {
	SetPriority(t *thread.Thread, priority int)
	PriorityOf(t *thread.Thread) int
	NowNS() uint64

	// ParkSelf marks self Waiting and blocks until Wake(self) is called,
	// or returns immediately if a Wake already arrived first.
	ParkSelf(self *thread.Thread)

	// ParkSelfUntil is ParkSelf with an absolute deadline: it also
	// returns once deadlineNS passes with no Wake, reporting false.
	ParkSelfUntil(self *thread.Thread, deadlineNS uint64) (woke bool)

	// Wake moves t out of a pending ParkSelf/ParkSelfUntil and re-admits
	// it to the scheduler, reporting true — or reports false if t is no
	// longer parked (it already returned via a racing deadline), in
	// which case the caller must not treat the wakeup as delivered.
	Wake(t *thread.Thread) (woken bool)
}

type waiter struct {
	t *thread.Thread
}

// Mutex is a recursive, priority-inheriting lock. Locking it from the
// thread that already owns it just bumps the recursion depth; unlocking
// decrements it and only actually releases the lock at depth zero.
type Mutex struct {
	ctrl Scheduler

	mu    sync.Mutex
	owner *thread.Thread
	depth int

	basePriority int
	boosted      bool

	waiters []*waiter
}

// NewMutex builds a mutex whose owner's priority is managed through ctrl.
func NewMutex(ctrl Scheduler) *Mutex {
	return &Mutex{ctrl: ctrl}
}

// Lock acquires m for self, blocking if another thread holds it. It
// returns ErrDeadlock instead of blocking if doing so would complete a
// wait-for cycle back to self, walking the chain of current owners the
// way a held-resource graph is walked for cycle detection.
func (m *Mutex) Lock(self *thread.Thread) error {
	m.mu.Lock()
	if m.owner == nil {
		m.owner = self
		m.depth = 1
		m.basePriority = m.ctrl.PriorityOf(self)
		m.mu.Unlock()
		return nil
	}
	if m.owner == self {
		m.depth++
		m.mu.Unlock()
		return nil
	}
	if wouldDeadlock(m, self) {
		m.mu.Unlock()
		return ErrDeadlock
	}

	m.boostLocked(self)
	w := &waiter{t: self}
	m.waiters = append(m.waiters, w)
	m.sortWaitersLocked()
	m.mu.Unlock()

	SetBlockedOn(self, m)
	m.ctrl.ParkSelf(self)
	SetBlockedOn(self, nil)
	return nil
}

// TryLock acquires m without blocking, reporting whether it succeeded.
func (m *Mutex) TryLock(self *thread.Thread) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner == nil {
		m.owner = self
		m.depth = 1
		m.basePriority = m.ctrl.PriorityOf(self)
		return true
	}
	if m.owner == self {
		m.depth++
		return true
	}
	return false
}

// Unlock releases one recursion level. At depth zero it hands ownership
// to the highest-priority waiter (if any) and restores its own priority
// to what it was before any inheritance boost.
func (m *Mutex) Unlock(self *thread.Thread) {
	m.mu.Lock()
	if m.owner != self {
		m.mu.Unlock()
		panic("sync: Unlock by non-owner")
	}
	m.depth--
	if m.depth > 0 {
		m.mu.Unlock()
		return
	}
	m.handoffLocked()
}

// PKunlockAllDepthLevels force-releases every recursion level self holds
// on m in one step, for the thread-termination path: a dying thread must
// not leave a mutex permanently held just because it had recursively
// locked it several times.
func (m *Mutex) PKunlockAllDepthLevels(self *thread.Thread) {
	m.mu.Lock()
	if m.owner != self {
		m.mu.Unlock()
		return
	}
	m.depth = 0
	m.handoffLocked()
}

// handoffLocked must be called with m.mu held and m.depth already zero.
func (m *Mutex) handoffLocked() {
	if m.boosted {
		m.ctrl.SetPriority(m.owner, m.basePriority)
		m.boosted = false
	}
	if len(m.waiters) == 0 {
		m.owner = nil
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.owner = next.t
	m.depth = 1
	m.basePriority = m.ctrl.PriorityOf(next.t)
	m.mu.Unlock()
	m.ctrl.Wake(next.t)
}

// boostLocked raises m's current owner to at least self's priority, the
// classic priority-inheritance protocol: a low-priority lock holder
// borrows the priority of whoever it is blocking so it cannot be starved
// by medium-priority threads that don't even want the lock.
func (m *Mutex) boostLocked(self *thread.Thread) {
	want := m.ctrl.PriorityOf(self)
	have := m.ctrl.PriorityOf(m.owner)
	if want > have {
		m.ctrl.SetPriority(m.owner, want)
		m.boosted = true
	}
}

func (m *Mutex) sortWaitersLocked() {
	sort.SliceStable(m.waiters, func(i, j int) bool {
		return m.ctrl.PriorityOf(m.waiters[i].t) > m.ctrl.PriorityOf(m.waiters[j].t)
	})
}

// wouldDeadlock walks the chain of "m's owner is itself blocked waiting
// on mutex X owned by Y" to see whether that chain ever leads back to
// self, in which case granting this wait would close a cycle.
func wouldDeadlock(start *Mutex, self *thread.Thread) bool {
	seen := map[*Mutex]bool{}
	m := start
	for m != nil {
		if seen[m] {
			return false
		}
		seen[m] = true
		owner := m.owner
		if owner == self {
			return true
		}
		m = blockedOn(owner)
	}
	return false
}

// blockedOn and its registry are filled in by kernel/sync callers that
// want deadlock detection wired to the live set of mutexes a thread is
// currently waiting on. Without a registration, cycle detection degrades
// to "never detects," which is still memory-safe, just not exhaustive.
var blockedOnRegistry sync.Map // *thread.Thread -> *Mutex

func blockedOn(t *thread.Thread) *Mutex {
	if t == nil {
		return nil
	}
	v, ok := blockedOnRegistry.Load(t)
	if !ok {
		return nil
	}
	return v.(*Mutex)
}

// SetBlockedOn records that t is currently blocked waiting on m, for
// deadlock-cycle detection. Call with nil to clear it once the wait ends.
func SetBlockedOn(t *thread.Thread, m *Mutex) {
	if m == nil {
		blockedOnRegistry.Delete(t)
		return
	}
	blockedOnRegistry.Store(t, m)
}
