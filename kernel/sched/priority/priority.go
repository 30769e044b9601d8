// Package priority implements fixed-priority round-robin scheduling:
// config.PriorityMax levels, FIFO round robin within a level, and a
// per-core idle thread run only when every level is empty. Grounded on the
// teacher's sparkos/kernel cooperative ready-queue walk, generalized from
// its single flat queue to config.PriorityMax separate levels.
package priority

import (
	"sync"

	"rtcore/kernel/config"
	"rtcore/kernel/thread"
)

type level struct {
	queue []*thread.Thread
}

func (l *level) pushBack(t *thread.Thread) { l.queue = append(l.queue, t) }

func (l *level) popFront() *thread.Thread {
	if len(l.queue) == 0 {
		return nil
	}
	t := l.queue[0]
	l.queue = l.queue[1:]
	return t
}

func (l *level) remove(t *thread.Thread) bool {
	for i, q := range l.queue {
		if q == t {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Policy is the fixed-priority round-robin scheduler.
type Policy struct {
	mu     sync.Mutex
	levels [config.PriorityMax]level
	idle   [config.NumCores]*thread.Thread
	known  map[*thread.Thread]bool
}

func New() *Policy {
	return &Policy{known: make(map[*thread.Thread]bool)}
}

func (p *Policy) clampedLevel(priority int) int {
	if priority < 0 {
		return 0
	}
	if priority >= config.PriorityMax {
		return config.PriorityMax - 1
	}
	return priority
}

func (p *Policy) PKaddThread(t *thread.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels[p.clampedLevel(t.Priority)].pushBack(t)
	p.known[t] = true
}

func (p *Policy) PKremoveDeadThreads() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.levels {
		kept := p.levels[i].queue[:0]
		for _, t := range p.levels[i].queue {
			if t.State() == thread.Deleting && t.State() != thread.Running {
				delete(p.known, t)
				continue
			}
			kept = append(kept, t)
		}
		p.levels[i].queue = kept
	}
}

func (p *Policy) PKsetPriority(t *thread.Thread, priority int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.clampedLevel(t.Priority)
	if p.levels[old].remove(t) {
		t.Priority = priority
		p.levels[p.clampedLevel(priority)].pushBack(t)
		return
	}
	t.Priority = priority
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

func (p *Policy) IRQgetNextPreemption(core int) *thread.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peekLocked(core)
}

func (p *Policy) peekLocked(core int) *thread.Thread {
	for i := len(p.levels) - 1; i >= 0; i-- {
		for _, t := range p.levels[i].queue {
			if t.Core == core {
				return t
			}
		}
	}
	return p.idle[core]
}

// IRQrunScheduler pops the next thread to run off its level's queue. The
// caller (kernel.runCore) is responsible for calling PKaddThread again
// once the thread is done running, if it is still Ready rather than
// blocked or dead; this keeps "which threads are ready" single-sourced in
// the policy's queues instead of a thread being simultaneously queued and
// running.
func (p *Policy) IRQrunScheduler(core int) *thread.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.levels) - 1; i >= 0; i-- {
		for j, t := range p.levels[i].queue {
			if t.Core != core {
				continue
			}
			p.levels[i].queue = append(p.levels[i].queue[:j], p.levels[i].queue[j+1:]...)
			return t
		}
	}
	return p.idle[core]
}
