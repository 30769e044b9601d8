// Package lock implements the three lock-discipline primitives spec.md
// §4.C names: the nestable GlobalIRQLock, the KernelPause cooperative
// preemption-disable counter, and the DeepSleepLock veto counter. All
// three are grounded on the andypeng2015-tinygo scheduler's paired
// lock/unlock-with-interrupt-mask idiom (lockScheduler/unlockScheduler,
// lockFutex/unlockFutex): mask the interrupt source, take a plain mutex,
// and track nesting depth so a recursive acquire by the same core is free
// rather than a deadlock.
package lock

import (
	"sync"

	"rtcore/kernel/config"
)

// InterruptMask is the CPU port's interrupt enable/disable pair. It is
// supplied by the caller rather than imported directly, so kernel/lock
// does not depend on kernel/port or hal.
type InterruptMask interface {
	Disable()
	Enable()
}

// GlobalIRQLock is the kernel's outermost lock: while held, no interrupt
// source may run its handler on the core that holds it. It nests freely up
// to config.LockNestingCeiling; deeper nesting is a kernel bug, not a
// legitimate pattern, and is treated as fatal.
type GlobalIRQLock struct {
	mask InterruptMask
	mu   sync.Mutex

	depthMu sync.Mutex
	depth   [config.NumCores]uint32

	onOverflow func(core int)
}

// NewGlobalIRQLock builds a lock that drives mask's Disable/Enable exactly
// once per outermost acquire/release, regardless of core-local nesting.
func NewGlobalIRQLock(mask InterruptMask) *GlobalIRQLock {
	return &GlobalIRQLock{mask: mask}
}

// OnNestingOverflow installs the callback invoked once an acquire has
// nested past the ceiling (the acquire itself still completes); without
// one, overflow panics.
func (g *GlobalIRQLock) OnNestingOverflow(fn func(core int)) { g.onOverflow = fn }

// Guard is a scoped GlobalIRQLock acquisition, returned by Acquire.
type Guard struct {
	g    *GlobalIRQLock
	core int
	live bool
}

// Acquire masks interrupts on core and takes the lock, or just bumps the
// nesting depth if core already holds it.
func (g *GlobalIRQLock) Acquire(core int) *Guard {
	g.depthMu.Lock()
	depth := g.depth[core]
	g.depthMu.Unlock()

	if depth == 0 {
		g.mask.Disable()
		g.mu.Lock()
	}

	g.depthMu.Lock()
	g.depth[core]++
	newDepth := g.depth[core]
	g.depthMu.Unlock()

	if newDepth > config.LockNestingCeiling {
		if g.onOverflow != nil {
			g.onOverflow(core)
		} else {
			panic("lock: GlobalIRQLock nesting ceiling exceeded")
		}
	}

	return &Guard{g: g, core: core, live: true}
}

// Release unwinds one level of nesting, re-enabling interrupts only once
// the outermost acquire on this core unwinds.
func (guard *Guard) Release() {
	if !guard.live {
		return
	}
	guard.live = false
	g := guard.g

	g.depthMu.Lock()
	g.depth[guard.core]--
	depth := g.depth[guard.core]
	g.depthMu.Unlock()

	if depth == 0 {
		g.mu.Unlock()
		g.mask.Enable()
	}
}

// WithUnlocked temporarily releases every nesting level held by core,
// calls fn, then reacquires back to the same depth. This is the scoped
// unlock-inside-a-locked-scope handle spec.md §4.C requires for call sites
// that must run a potentially-blocking operation while logically still
// "inside" the outer critical section.
func (g *GlobalIRQLock) WithUnlocked(core int, fn func()) {
	g.depthMu.Lock()
	saved := g.depth[core]
	g.depthMu.Unlock()
	if saved == 0 {
		fn()
		return
	}

	g.depthMu.Lock()
	g.depth[core] = 0
	g.depthMu.Unlock()
	g.mu.Unlock()
	g.mask.Enable()

	fn()

	g.mask.Disable()
	g.mu.Lock()
	g.depthMu.Lock()
	g.depth[core] = saved
	g.depthMu.Unlock()
}

// Depth returns core's current nesting depth, for diagnostics and tests.
func (g *GlobalIRQLock) Depth(core int) uint32 {
	g.depthMu.Lock()
	defer g.depthMu.Unlock()
	return g.depth[core]
}
