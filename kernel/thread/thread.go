// Package thread implements the thread object and its lifecycle state
// machine from spec.md §4.D: a state byte for the primary run state and a
// separate flag byte for the detached/terminating modifiers, after the
// teacher's sparkos/kernel task bitmask rather than a struct of bools.
package thread

import (
	"errors"
	"sync"

	"rtcore/kernel/port"
)

// State is the thread's primary run state. It is held in its own byte,
// apart from the Flag bits.
type State uint8

const (
	Dormant State = iota
	Ready
	Running
	// Waiting covers both the explicit wait/wakeup pair and a thread
	// parked inside one of kernel/sync's primitives: the scheduler only
	// needs to know "not runnable until something external re-admits
	// it," not which of those reasons applies.
	Waiting
	Sleeping
	Deleting
	Deleted
)

func (s State) String() string {
	switch s {
	case Dormant:
		return "dormant"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Sleeping:
		return "sleeping"
	case Deleting:
		return "deleting"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ErrJoinInProgress is returned by Join when another caller already has
// a join pending on the same thread: spec.md's join is a single-slot
// rendezvous, not a broadcast.
var ErrJoinInProgress = errors.New("thread: another join is already pending on this thread")

// Flag bits make up a thread's flag byte, separate from and orthogonal to
// State.
type Flag uint8

const (
	FlagDetached Flag = 1 << iota
	FlagTerminateRequested
)

// ID identifies a thread for the lifetime of the kernel; IDs are never
// reused while a thread with that ID might still be referenced (e.g. by a
// pending Join), matching spec.md §4.D's no-premature-reuse requirement.
type ID uint32

// Thread is one schedulable unit of execution. Exported fields are the
// ones kernel/sched's policies read directly under the caller's lock;
// everything else goes through methods that take thread.mu themselves.
type Thread struct {
	ID       ID
	Priority int
	Core     int

	Frame *port.Frame

	// Deadline and Period are EDF-only; a fixed-priority build leaves
	// them zero and ignores them.
	DeadlineNS uint64
	PeriodNS   uint64

	mu    sync.Mutex
	state State
	flags Flag

	wakeAtNS uint64 // valid while state == Sleeping, or a timed Waiting parked in the sleep queue
	ranNS    uint64 // cumulative CPU time, maintained only when config.WithCPUTimeCounter

	// wakePending and timedOK make BeginWait/Wakeup race-free regardless
	// of which side runs first: a Wakeup that arrives before the matching
	// BeginWait still has to be observed, and a caller parked with a
	// deadline needs to know whether it was Wakeup or the deadline that
	// actually moved it out of Waiting.
	wakePending bool
	timedOK     bool

	joinWaiter chan ExitInfo
	exitInfo   *ExitInfo

	name string
}

// ExitInfo is recorded when a thread terminates, for Join to hand back.
type ExitInfo struct {
	Code     int
	Signaled bool
}

// New builds a Dormant thread. The caller arms Frame and enqueues it with
// a scheduler policy before it becomes Ready.
func New(id ID, name string, priority, core int, frame *port.Frame) *Thread {
	return &Thread{ID: id, name: name, Priority: priority, Core: core, Frame: frame, state: Dormant}
}

func (t *Thread) Name() string { return t.name }

// State returns the thread's current primary state.
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState transitions the thread to s. Any state may move to Deleting
// (spec.md §4.D: "any non-Deleted state can transition to Deleting"); the
// only other mutation path is through the scheduler, which calls this
// under the GlobalIRQLock.
func (t *Thread) SetState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Flags returns the current flag bits.
func (t *Thread) Flags() Flag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags
}

func (t *Thread) SetFlag(f Flag) {
	t.mu.Lock()
	t.flags |= f
	t.mu.Unlock()
}

func (t *Thread) ClearFlag(f Flag) {
	t.mu.Lock()
	t.flags &^= f
	t.mu.Unlock()
}

func (t *Thread) HasFlag(f Flag) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags&f != 0
}

// WakeAtNS returns the absolute wake time recorded for a Sleeping thread.
func (t *Thread) WakeAtNS() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wakeAtNS
}

// SetWakeAtNS records the absolute wake time and moves the thread to
// Sleeping.
func (t *Thread) SetWakeAtNS(ns uint64) {
	t.mu.Lock()
	t.wakeAtNS = ns
	t.state = Sleeping
	t.mu.Unlock()
}

// BeginWait transitions self into Waiting so it can be parked, unless a
// Wakeup already arrived first — in which case that pending wakeup is
// consumed here and the caller should proceed without parking at all.
// This is the same race the timed-sleep/explicit-wakeup pair has to
// survive: whichever side runs first, the outcome is the same.
func (t *Thread) BeginWait() (shouldPark bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.wakePending {
		t.wakePending = false
		return false
	}
	t.state = Waiting
	return true
}

// BeginTimedWait is BeginWait plus an absolute deadline recorded for the
// sleep queue, for a wait that should also return on a timeout.
func (t *Thread) BeginTimedWait(deadlineNS uint64) (shouldPark bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.wakePending {
		t.wakePending = false
		return false
	}
	t.state = Waiting
	t.wakeAtNS = deadlineNS
	t.timedOK = false
	return true
}

// EndTimedWait reports whether a parked BeginTimedWait call ended via an
// explicit Wakeup (true) rather than the deadline elapsing (false).
func (t *Thread) EndTimedWait() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.timedOK
	t.timedOK = false
	return v
}

// Wakeup moves t out of a pending Waiting state, reporting true, or — if
// t hasn't reached BeginWait/BeginTimedWait yet — latches the wakeup for
// that call to consume instead, reporting false. A caller that gets true
// owns re-admitting t to the ready queue; one that gets false does
// nothing further, since t was never off the ready queue to begin with.
func (t *Thread) Wakeup() (wasWaiting bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Waiting {
		t.state = Ready
		t.timedOK = true
		return true
	}
	t.wakePending = true
	return false
}

// AddRanNS accumulates ns of observed CPU service time. Only called from
// the dispatcher loop when kernel/config.WithCPUTimeCounter is set.
func (t *Thread) AddRanNS(ns uint64) {
	t.mu.Lock()
	t.ranNS += ns
	t.mu.Unlock()
}

// RanNS returns the thread's cumulative observed CPU time. Reads zero on
// a build with WithCPUTimeCounter off.
func (t *Thread) RanNS() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ranNS
}

// StackOK checks the overflow watermark; called by the dispatcher before
// each dispatch of the thread, matching spec.md §4.D's "checked
// opportunistically rather than on every push."
func (t *Thread) StackOK() bool {
	return t.Frame.WatermarkIntact()
}

// Exit records the thread's exit status, wakes any Join waiters, and
// moves it to Deleting. It does not free resources; that is the
// scheduler's job once every joiner has observed the result (or the
// thread was detached).
func (t *Thread) Exit(info ExitInfo) {
	t.mu.Lock()
	t.state = Deleting
	t.exitInfo = &info
	ch := t.joinWaiter
	t.joinWaiter = nil
	t.mu.Unlock()

	if ch != nil {
		ch <- info
	}
}

// Join blocks the calling goroutine until the thread exits, returning its
// ExitInfo. It is a single-slot rendezvous: a second concurrent Join on
// the same not-yet-exited thread fails with ErrJoinInProgress instead of
// queuing behind the first. Calling Join on an already-detached thread is
// a caller bug; the kernel facade rejects it before reaching here.
func (t *Thread) Join() (ExitInfo, error) {
	t.mu.Lock()
	if t.exitInfo != nil {
		info := *t.exitInfo
		t.mu.Unlock()
		return info, nil
	}
	if t.joinWaiter != nil {
		t.mu.Unlock()
		return ExitInfo{}, ErrJoinInProgress
	}
	ch := make(chan ExitInfo, 1)
	t.joinWaiter = ch
	t.mu.Unlock()
	return <-ch, nil
}
