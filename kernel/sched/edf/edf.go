// Package edf implements earliest-deadline-first scheduling: the ready
// thread with the soonest DeadlineNS always runs next. PKremoveDeadThreads
// sweeps dead threads in two passes — mark, then compact — rather than
// the teacher's single firstPass-never-cleared loop spec.md §9 flags as
// buggy: a one-pass compaction that mutates the slice while iterating it
// skips the element that slides into a just-removed index.
package edf

import (
	"sort"
	"sync"

	"rtcore/kernel/config"
	"rtcore/kernel/thread"
)

// Policy is the earliest-deadline-first scheduler.
type Policy struct {
	mu    sync.Mutex
	ready []*thread.Thread
	idle  [config.NumCores]*thread.Thread
	known map[*thread.Thread]bool
}

func New() *Policy {
	return &Policy{known: make(map[*thread.Thread]bool)}
}

func (p *Policy) PKaddThread(t *thread.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = append(p.ready, t)
	p.known[t] = true
	p.sortLocked()
}

func (p *Policy) sortLocked() {
	sort.SliceStable(p.ready, func(i, j int) bool {
		return p.ready[i].DeadlineNS < p.ready[j].DeadlineNS
	})
}

// PKremoveDeadThreads runs the mark pass over the whole ready list,
// recording which entries are dead (Deleting and not the thread currently
// Running), then a second compaction pass that only looks at the marks,
// never re-reading thread state mid-compaction. Folding both passes into
// one loop is exactly the bug spec.md §9 calls out: the slice shrinks
// under the iterator, so the element shifted into the freed slot is
// skipped on that same pass and only caught a full scheduler tick later.
func (p *Policy) PKremoveDeadThreads() {
	p.mu.Lock()
	defer p.mu.Unlock()

	dead := make([]bool, len(p.ready))
	for i, t := range p.ready {
		dead[i] = t.State() == thread.Deleting && t.State() != thread.Running
	}

	kept := p.ready[:0]
	for i, t := range p.ready {
		if dead[i] {
			delete(p.known, t)
			continue
		}
		kept = append(kept, t)
	}
	p.ready = kept
}

func (p *Policy) PKsetPriority(t *thread.Thread, priority int) {
	p.mu.Lock()
	t.Priority = priority
	p.mu.Unlock()
}

func (p *Policy) PKexists(t *thread.Thread) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.known[t] || t.State() == thread.Running
}

func (p *Policy) IRQsetIdleThread(t *thread.Thread) {
	p.mu.Lock()
	p.idle[t.Core] = t
	p.known[t] = true
	p.mu.Unlock()
}

func (p *Policy) firstForCoreLocked(core int) *thread.Thread {
	for _, t := range p.ready {
		if t.Core == core {
			return t
		}
	}
	return p.idle[core]
}

func (p *Policy) IRQgetNextPreemption(core int) *thread.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstForCoreLocked(core)
}

// IRQrunScheduler pops the earliest-deadline ready thread for core. See
// priority.Policy.IRQrunScheduler for why the caller, not this method,
// re-adds the thread if it is still Ready once it stops running.
func (p *Policy) IRQrunScheduler(core int) *thread.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range p.ready {
		if t.Core == core {
			p.ready = append(p.ready[:i], p.ready[i+1:]...)
			return t
		}
	}
	return p.idle[core]
}
