package lock

import "sync/atomic"

// KernelPause is the cooperative preemption-disable counter: while held,
// the scheduler may still run interrupt handlers and record that a
// preemption is due, but must not actually switch threads until the count
// drops back to zero, at which point a pending switch fires immediately.
type KernelPause struct {
	depth   atomic.Int32
	pending atomic.Bool

	yield func()
}

// OnResumeYield installs the hook KernelPause calls to act on a pending
// wakeup the instant the pause count returns to zero. It is set after
// construction to avoid an import cycle with kernel/sched, which owns the
// actual dispatch decision.
func (p *KernelPause) OnResumeYield(fn func()) { p.yield = fn }

// Acquire increments the pause depth.
func (p *KernelPause) Acquire() { p.depth.Add(1) }

// Release decrements the pause depth, running the pending-wakeup yield
// hook if this was the outermost release and a wakeup had been deferred.
func (p *KernelPause) Release() {
	if p.depth.Add(-1) == 0 && p.pending.CompareAndSwap(true, false) {
		if p.yield != nil {
			p.yield()
		}
	}
}

// Paused reports whether any core holds a pending pause.
func (p *KernelPause) Paused() bool { return p.depth.Load() > 0 }

// RequestWakeup records that a scheduling decision was deferred because
// the kernel was paused, so Release knows to act on it.
func (p *KernelPause) RequestWakeup() { p.pending.Store(true) }
