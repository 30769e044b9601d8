// Package sched defines the scheduler policy interface spec.md §9 calls
// out as selected once at compile time: exactly one of
// kernel/sched/priority, kernel/sched/edf, or kernel/sched/control backs
// this interface in a given build, chosen by the kernel package's
// sched_edf / sched_control build tags. Having all three live behind one
// interface (rather than, say, three copies of the kernel facade) is
// grounded on the hal package's own !tinygo/tinygo split: one seam,
// several interchangeable concrete implementations.
package sched

import "rtcore/kernel/thread"

// Policy is the scheduling algorithm's full surface, named after the
// PK-prefixed (process kernel) and IRQ-prefixed entry points of spec.md
// §4.E: PK calls come from ordinary kernel-mode thread context, IRQ calls
// from the timer tick or an interrupt handler.
type Policy interface {
	// PKaddThread makes t ready to run.
	PKaddThread(t *thread.Thread)

	// PKremoveDeadThreads sweeps every thread in Deleting state out of the
	// policy's bookkeeping, except one currently marked Running (spec.md
	// §9's PKexists running-thread exception: a thread mid-exit is still
	// "current" to the dispatcher until the next context switch actually
	// leaves it).
	PKremoveDeadThreads()

	// PKsetPriority updates t's scheduling priority in place.
	PKsetPriority(t *thread.Thread, priority int)

	// PKexists reports whether t is known to the policy: ready, blocked
	// pending re-add, or currently running, even if it has since been
	// marked Deleting.
	PKexists(t *thread.Thread) bool

	// IRQsetIdleThread installs the thread run when nothing else is
	// ready. It is never itself returned by PKexists as "ready" in the
	// ordinary sense; it always exists.
	IRQsetIdleThread(t *thread.Thread)

	// IRQgetNextPreemption peeks at which thread would run next without
	// committing to the switch, for the tick handler to decide whether a
	// preemption is even due.
	IRQgetNextPreemption(core int) *thread.Thread

	// IRQrunScheduler commits to a scheduling decision for core and
	// returns the thread that should now run.
	IRQrunScheduler(core int) *thread.Thread
}
