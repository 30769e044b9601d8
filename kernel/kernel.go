// Package kernel is the facade spec.md §6 exposes to application code:
// thread create/yield/sleep/wait/wakeup, the three synchronization
// primitives, monotonic time, and the optional process-load path. It
// wires together kernel/port, kernel/timer, kernel/lock, kernel/thread,
// kernel/sched (one policy, chosen at compile time by the policy_*.go
// files), kernel/sync, and kernel/process, mirroring the way the
// teacher's top-level kernel package wires its endpoint/mailbox/context
// pieces behind one Kernel type.
package kernel

import (
	"errors"
	"sync"
	"time"

	"rtcore/hal"
	"rtcore/kernel/config"
	"rtcore/kernel/lock"
	"rtcore/kernel/port"
	"rtcore/kernel/process"
	ksync "rtcore/kernel/sync"
	"rtcore/kernel/thread"
	"rtcore/kernel/timer"
)

// policy is a local alias so the three policy_*.go build-tag files don't
// each need to import kernel/sched themselves.
type policy = interface {
	PKaddThread(t *thread.Thread)
	PKremoveDeadThreads()
	PKsetPriority(t *thread.Thread, priority int)
	PKexists(t *thread.Thread) bool
	IRQsetIdleThread(t *thread.Thread)
	IRQgetNextPreemption(core int) *thread.Thread
	IRQrunScheduler(core int) *thread.Thread
}

var (
	ErrNoSuchThread      = errors.New("kernel: no such thread")
	ErrAlreadyJoined     = errors.New("kernel: thread already joined or detached")
	ErrJoinInProgress    = errors.New("kernel: another join is already pending on this thread")
	ErrProcessesDisabled = errors.New("kernel: built without with_processes")
)

// serviceRecorder is implemented by the control-theoretic policy; other
// policies don't need a feedback signal, so this is an optional interface
// probed with a type assertion rather than part of kernel/sched.Policy.
type serviceRecorder interface {
	RecordService(t *thread.Thread, ranNS, sliceNS int64)
}

// noopMask is the GlobalIRQLock interrupt mask for a build with no real
// asynchronous interrupt source to suspend: the host HAL's interrupt
// controller (hal/host_interrupts.go) delivers every "interrupt" as a
// synchronous call already serialized by GlobalIRQLock's own mutex, so
// there is nothing left for Disable/Enable to do.
type noopMask struct{}

func (noopMask) Disable() {}
func (noopMask) Enable()  {}

// Kernel is the whole wired-up system: one per address space, holding
// every core's scheduler state.
type Kernel struct {
	h   hal.HAL
	pol policy

	irq       *lock.GlobalIRQLock
	pause     *lock.KernelPause
	deepSleep *lock.DeepSleepLock
	clock     *timer.System

	threadsMu sync.Mutex
	nextID    thread.ID
	threads   map[thread.ID]*thread.Thread

	sleepQ  [config.NumCores]*thread.SleepQueue
	current [config.NumCores]*thread.Thread

	procs *process.Pool

	started bool
}

// New builds a Kernel over h, with idle threads installed for every core
// but the dispatcher loops not yet running; call Start to bring it up.
func New(h hal.HAL) *Kernel {
	k := &Kernel{
		h:       h,
		pol:     newPolicy(),
		irq:     lock.NewGlobalIRQLock(noopMask{}),
		pause:   &lock.KernelPause{},
		deepSleep: &lock.DeepSleepLock{},
		clock:   timer.New(h.Timer()),
		threads: make(map[thread.ID]*thread.Thread),
	}
	k.pause.OnResumeYield(func() {
		for c := 0; c < config.NumCores; c++ {
			k.pol.IRQgetNextPreemption(c)
		}
	})
	for c := 0; c < config.NumCores; c++ {
		k.sleepQ[c] = &thread.SleepQueue{}
		idleStack := make([]byte, config.StackMin)
		idleFrame := port.NewFrame(idleStack, false)
		idle := thread.New(k.allocID(), "idle", -1, c, idleFrame)
		k.threadsMu.Lock()
		k.threads[idle.ID] = idle
		k.threadsMu.Unlock()
		idleFrame.Start(func() { k.idleLoop(idleFrame) })
		k.pol.IRQsetIdleThread(idle)
	}
	if config.WithProcesses && h.ImagePool() != nil {
		k.procs = process.NewPool(h.ImagePool())
	}
	return k
}

func (k *Kernel) allocID() thread.ID {
	k.nextID++
	return k.nextID
}

// idleLoop runs on every core's idle thread. The real WFI instruction
// would put the core to sleep until the next interrupt; time.Sleep is the
// closest a goroutine gets to that without busy-spinning the host CPU.
//
// With WithDeepSleep on and nothing vetoing it (k.deepSleep), idle sleeps
// for as long as the next scheduled wakeup allows instead of polling
// every millisecond, standing in for a real core dropping into a deep
// sleep power state between interrupts; a veto or a near deadline falls
// back to the short poll.
func (k *Kernel) idleLoop(self *port.Frame) {
	for {
		time.Sleep(k.idleSleepDuration())
		self.ParkSelf()
	}
}

func (k *Kernel) idleSleepDuration() time.Duration {
	const poll = time.Millisecond
	if !config.WithDeepSleep || !k.deepSleep.SafeToSleep() {
		return poll
	}
	nowNS := k.clock.NowNS()
	var nextNS uint64
	for c := 0; c < config.NumCores; c++ {
		if w := k.sleepQ[c].NextWakeNS(); w != 0 && (nextNS == 0 || w < nextNS) {
			nextNS = w
		}
	}
	if nextNS == 0 || nextNS <= nowNS {
		return poll
	}
	if d := time.Duration(nextNS - nowNS); d > poll {
		return d
	}
	return poll
}

// Start launches each core's dispatcher loop. It does not return.
func (k *Kernel) Start() {
	k.started = true
	done := make(chan struct{}, config.NumCores)
	for c := 0; c < config.NumCores; c++ {
		core := c
		go func() {
			k.runCore(core)
			done <- struct{}{}
		}()
	}
	for c := 0; c < config.NumCores; c++ {
		<-done
	}
}

// runCore is the dispatcher loop that plays the role of core's CPU: pick
// the next thread per policy, dispatch it, and account for how it
// stopped running once Dispatch returns.
func (k *Kernel) runCore(core int) {
	for {
		g := k.irq.Acquire(core)
		k.wakeDueSleepersLocked(core)
		k.pol.PKremoveDeadThreads()
		next := k.pol.IRQrunScheduler(core)
		k.current[core] = next
		next.SetState(thread.Running)
		g.Release()

		if !next.StackOK() {
			k.fatalStackOverflow(next)
		}

		startNS := k.clock.NowNS()
		finished := next.Frame.Dispatch()
		k.accountServiceTime(next, startNS)

		g2 := k.irq.Acquire(core)
		if finished {
			if next.State() != thread.Deleting {
				next.Exit(thread.ExitInfo{Code: 0})
			}
		} else if next.State() == thread.Running {
			next.SetState(thread.Ready)
			k.pol.PKaddThread(next)
		}
		g2.Release()
	}
}

// accountServiceTime records how long next actually ran, when
// WithCPUTimeCounter is on, and feeds the control-theoretic policy's
// feedback loop if that is the policy in use.
func (k *Kernel) accountServiceTime(next *thread.Thread, startNS uint64) {
	if !config.WithCPUTimeCounter {
		return
	}
	ranNS := k.clock.NowNS() - startNS
	next.AddRanNS(ranNS)
	if rec, ok := k.pol.(serviceRecorder); ok {
		rec.RecordService(next, int64(ranNS), config.MaxTimeSlice)
	}
}

func (k *Kernel) wakeDueSleepersLocked(core int) {
	now := k.clock.NowNS()
	for _, t := range k.sleepQ[core].PopDue(now) {
		t.SetState(thread.Ready)
		k.pol.PKaddThread(t)
	}
}

func (k *Kernel) fatalStackOverflow(t *thread.Thread) {
	if k.h.Logger() != nil {
		k.h.Logger().WriteLineString("kernel: stack overflow in thread " + t.Name())
	}
	t.Exit(thread.ExitInfo{Signaled: true})
	k.reportFatal(t, port.FaultStackOverflow, "watermark sentinel overwritten")
	k.h.Interrupts().SystemReboot()
}

// CreateThread builds and schedules a new thread running entry on its own
// goroutine, with priority and stackSize as given.
func (k *Kernel) CreateThread(name string, priority, core int, stackSize int, entry func()) *thread.Thread {
	if stackSize < config.StackMin {
		stackSize = config.StackMin
	}
	stack := make([]byte, stackSize)
	frame := port.NewFrame(stack, false)
	t := thread.New(k.allocID(), name, priority, core, frame)

	frame.Start(func() {
		entry()
	})

	k.threadsMu.Lock()
	k.threads[t.ID] = t
	k.threadsMu.Unlock()

	g := k.irq.Acquire(core)
	t.SetState(thread.Ready)
	k.pol.PKaddThread(t)
	g.Release()
	return t
}

// ThreadSnapshot is a point-in-time read of one thread's scheduling
// state, for diagnostics and the host visualizer.
type ThreadSnapshot struct {
	ID       thread.ID
	Name     string
	State    thread.State
	Priority int
	Core     int
}

// Snapshot returns a ThreadSnapshot for every thread the kernel currently
// knows about, in no particular order.
func (k *Kernel) Snapshot() []ThreadSnapshot {
	k.threadsMu.Lock()
	defer k.threadsMu.Unlock()
	out := make([]ThreadSnapshot, 0, len(k.threads))
	for _, t := range k.threads {
		out = append(out, ThreadSnapshot{
			ID:       t.ID,
			Name:     t.Name(),
			State:    t.State(),
			Priority: t.Priority,
			Core:     t.Core,
		})
	}
	return out
}

// NumCores returns the number of schedulable cores this build was
// configured for (kernel/config.NumCores).
func (k *Kernel) NumCores() int { return config.NumCores }

// Current returns the thread presently running on core.
func (k *Kernel) Current(core int) *thread.Thread { return k.current[core] }

// Yield cooperatively gives up the remainder of self's time slice.
func (k *Kernel) Yield(self *thread.Thread) {
	self.Frame.ParkSelf()
}

// Sleep blocks self until dur of wall-clock time passes.
func (k *Kernel) Sleep(self *thread.Thread, dur time.Duration) {
	k.SleepUntil(self, k.clock.NowNS()+uint64(dur.Nanoseconds()))
}

// SleepUntil blocks self until the clock reaches the absolute wakeAtNS
// reading, spec.md §6's sleep_until.
func (k *Kernel) SleepUntil(self *thread.Thread, wakeAtNS uint64) {
	g := k.irq.Acquire(self.Core)
	self.SetWakeAtNS(wakeAtNS)
	k.sleepQ[self.Core].Insert(self)
	g.Release()
	self.Frame.ParkSelf()
}

// Wait parks self until another thread or IRQ calls Wakeup(self),
// spec.md §6's explicit thread-level wait/wakeup pair, distinct from the
// sync primitives below which build their own queueing on top of the
// same ParkSelf/Wake mechanism.
func (k *Kernel) Wait(self *thread.Thread) { k.ParkSelf(self) }

// Wakeup moves target out of a pending Wait, Sleep, or a sync
// primitive's wait (or, if target hasn't parked yet, latches the wakeup
// so its next wait returns immediately instead of blocking) and
// re-admits it to the scheduler.
func (k *Kernel) Wakeup(target *thread.Thread) {
	if target.State() == thread.Sleeping {
		k.forceWakeOne(target)
		return
	}
	k.Wake(target)
}

// ParkSelf implements ksync.Scheduler: it marks self Waiting and blocks
// until Wake(self) is called, unless a Wake already arrived first.
func (k *Kernel) ParkSelf(self *thread.Thread) {
	if self.BeginWait() {
		self.Frame.ParkSelf()
	}
}

// ParkSelfUntil implements ksync.Scheduler: ParkSelf with an absolute
// deadline, backed by the same per-core sleep queue Sleep uses, so a
// contended mutex, condvar, or semaphore can also time out.
func (k *Kernel) ParkSelfUntil(self *thread.Thread, deadlineNS uint64) (woke bool) {
	g := k.irq.Acquire(self.Core)
	shouldPark := self.BeginTimedWait(deadlineNS)
	if shouldPark {
		k.sleepQ[self.Core].Insert(self)
	}
	g.Release()
	if !shouldPark {
		return true
	}
	self.Frame.ParkSelf()
	return self.EndTimedWait()
}

// Wake implements ksync.Scheduler: it moves t out of a pending
// ParkSelf/ParkSelfUntil and re-admits it to its core's ready queue,
// reporting true — or reports false if t is no longer parked there (a
// racing deadline already woke it), in which case the caller must not
// treat this as a delivered wakeup.
func (k *Kernel) Wake(t *thread.Thread) (woken bool) {
	if !t.Wakeup() {
		return false
	}
	g := k.irq.Acquire(t.Core)
	k.sleepQ[t.Core].Remove(t)
	k.pol.PKaddThread(t)
	g.Release()
	return true
}

// forceWakeOne forces one pending Wait, Sleep, or timed wait on t to
// return early, per spec.md §5's cancellation contract: a terminate call
// must let a thread blocked indefinitely notice the request. It is a
// no-op if t isn't currently parked in one of those states, which is
// what makes RequestTerminate idempotent — a second call finds nothing
// left to force awake.
func (k *Kernel) forceWakeOne(t *thread.Thread) {
	switch t.State() {
	case thread.Waiting:
		k.Wake(t)
	case thread.Sleeping:
		g := k.irq.Acquire(t.Core)
		if t.State() == thread.Sleeping {
			k.sleepQ[t.Core].Remove(t)
			t.SetState(thread.Ready)
			k.pol.PKaddThread(t)
		}
		g.Release()
	}
}

// Exists reports whether t is still known to the scheduler (spec.md §9's
// PKexists running-thread exception applies here too, via the policy).
func (k *Kernel) Exists(t *thread.Thread) bool { return k.pol.PKexists(t) }

// GetPriority returns t's current scheduling priority.
func (k *Kernel) GetPriority(t *thread.Thread) int { return t.Priority }

// SetPriority updates t's scheduling priority, satisfying
// ksync.Scheduler so kernel/sync's Mutex can drive priority inheritance
// through the live policy.
func (k *Kernel) SetPriority(t *thread.Thread, priority int) {
	g := k.irq.Acquire(t.Core)
	k.pol.PKsetPriority(t, priority)
	g.Release()
}

// PriorityOf implements ksync.Scheduler.
func (k *Kernel) PriorityOf(t *thread.Thread) int { return t.Priority }

// Terminate marks t for deletion; it is reaped the next time its core's
// dispatcher runs PKremoveDeadThreads.
func (k *Kernel) Terminate(t *thread.Thread, code int) {
	t.Exit(thread.ExitInfo{Code: code})
}

// TestTerminate reports whether t has a termination request pending,
// for a thread's own cooperative-cancellation checkpoints.
func (k *Kernel) TestTerminate(t *thread.Thread) bool {
	return t.HasFlag(thread.FlagTerminateRequested)
}

// RequestTerminate asks t to terminate at its own next checkpoint rather
// than killing it outright, and forces one pending wait/sleep/timed wait
// of t's to return early so a thread blocked indefinitely still gets a
// chance to observe the request.
func (k *Kernel) RequestTerminate(t *thread.Thread) {
	t.SetFlag(thread.FlagTerminateRequested)
	k.forceWakeOne(t)
}

// Detach marks t as not joinable; its exit status is discarded once it
// terminates instead of being held for a Join call.
func (k *Kernel) Detach(t *thread.Thread) { t.SetFlag(thread.FlagDetached) }

// Join blocks until t exits, returning its exit info. Joining a detached
// thread is a caller bug the facade rejects. Join is a single-slot
// rendezvous: a second concurrent Join on the same thread fails with
// ErrJoinInProgress rather than queuing behind the first.
func (k *Kernel) Join(t *thread.Thread) (thread.ExitInfo, error) {
	if t.HasFlag(thread.FlagDetached) {
		return thread.ExitInfo{}, ErrAlreadyJoined
	}
	info, err := t.Join()
	if err == thread.ErrJoinInProgress {
		return thread.ExitInfo{}, ErrJoinInProgress
	}
	return info, err
}

// NowNS returns the kernel's monotonic clock reading.
func (k *Kernel) NowNS() uint64 { return k.clock.NowNS() }

// Logger returns the HAL's diagnostic logger, for a syscall dispatcher
// servicing a process's SysWriteLog on the kernel's behalf.
func (k *Kernel) Logger() hal.Logger { return k.h.Logger() }

// NewMutex builds a priority-inheriting mutex managed by this kernel.
func (k *Kernel) NewMutex() *ksync.Mutex { return ksync.NewMutex(k) }

// NewCondVar builds a condition variable paired with m.
func (k *Kernel) NewCondVar(m *ksync.Mutex) *ksync.CondVar { return ksync.NewCondVar(m, k) }

// NewSemaphore builds a counting semaphore starting at count.
func (k *Kernel) NewSemaphore(count int) *ksync.Semaphore { return ksync.NewSemaphore(count, k) }

// AcquireDeepSleepVeto and ReleaseDeepSleepVeto expose the kernel-wide
// deep sleep veto counter to drivers that need to keep a core awake
// through a latency-sensitive section.
func (k *Kernel) AcquireDeepSleepVeto() { k.deepSleep.Acquire() }
func (k *Kernel) ReleaseDeepSleepVeto() { k.deepSleep.Release() }
func (k *Kernel) SafeToDeepSleep() bool { return k.deepSleep.SafeToSleep() }
