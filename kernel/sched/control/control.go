// Package control implements the control-theoretic scheduling policy:
// each thread carries a desired CPU share (Priority, reused here as an
// integer weight rather than a strict precedence level) and the scheduler
// tracks a per-thread lag — the service it actually got minus the service
// it should have received by now under its weight. The
// ready thread with the most negative lag (furthest behind its fair
// share) runs next, and RecordService feeds the measured run time back
// into the controller the way a PI loop feeds back a measured error.
//
// This is a feedback scheduler rather than a fixed ordering, grounded on
// the same feedback-loop shape the teacher's OS timer deadline-correction
// arms (measure actual elapsed ticks, correct the next arm time) applies
// to service accounting instead of clock drift.
package control

import (
	"sync"

	"rtcore/kernel/config"
	"rtcore/kernel/thread"
)

type entry struct {
	t      *thread.Thread
	lag    int64 // negative means behind its fair share
	weight int64
}

// Policy is the control-theoretic (fair-share feedback) scheduler.
type Policy struct {
	mu    sync.Mutex
	ready []*entry
	idle  [config.NumCores]*thread.Thread
	known map[*thread.Thread]*entry
}

func New() *Policy {
	return &Policy{known: make(map[*thread.Thread]*entry)}
}

func weightOf(t *thread.Thread) int64 {
	w := int64(t.Priority)
	if w <= 0 {
		w = 1
	}
	return w
}

func (p *Policy) PKaddThread(t *thread.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.known[t]
	if !ok {
		e = &entry{t: t}
		p.known[t] = e
	}
	e.weight = weightOf(t)
	p.ready = append(p.ready, e)
}

func (p *Policy) PKremoveDeadThreads() {
	p.mu.Lock()
	defer p.mu.Unlock()
	dead := make([]bool, len(p.ready))
	for i, e := range p.ready {
		dead[i] = e.t.State() == thread.Deleting && e.t.State() != thread.Running
	}
	kept := p.ready[:0]
	for i, e := range p.ready {
		if dead[i] {
			delete(p.known, e.t)
			continue
		}
		kept = append(kept, e)
	}
	p.ready = kept
}

func (p *Policy) PKsetPriority(t *thread.Thread, priority int) {
	p.mu.Lock()
	t.Priority = priority
	if e, ok := p.known[t]; ok {
		e.weight = weightOf(t)
	}
	p.mu.Unlock()
}

func (p *Policy) PKexists(t *thread.Thread) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.known[t]
	return ok || t.State() == thread.Running
}

func (p *Policy) IRQsetIdleThread(t *thread.Thread) {
	p.mu.Lock()
	p.idle[t.Core] = t
	p.known[t] = &entry{t: t, weight: 1}
	p.mu.Unlock()
}

func (p *Policy) pickLocked(core int) *entry {
	var best *entry
	for _, e := range p.ready {
		if e.t.Core != core {
			continue
		}
		if best == nil || e.lag < best.lag {
			best = e
		}
	}
	return best
}

func (p *Policy) IRQgetNextPreemption(core int) *thread.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.pickLocked(core); e != nil {
		return e.t
	}
	return p.idle[core]
}

// IRQrunScheduler pops the least-lag ready thread for core. See
// priority.Policy.IRQrunScheduler for why the caller re-adds the thread
// once it stops running, if it is still Ready.
func (p *Policy) IRQrunScheduler(core int) *thread.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.pickLocked(core)
	if e == nil {
		return p.idle[core]
	}
	for i, o := range p.ready {
		if o == e {
			p.ready = append(p.ready[:i], p.ready[i+1:]...)
			break
		}
	}
	return e.t
}

// RecordService feeds back ranNS of actually-observed run time for t,
// along with sliceNS (the scheduling quantum every ready thread was
// notionally entitled to share). t's lag rises by what it actually
// consumed and falls by its fair share of the slice,
// the same correction shape a PI controller applies to a measured error
// each sample period.
func (p *Policy) RecordService(t *thread.Thread, ranNS, sliceNS int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.known[t]
	if !ok {
		return
	}
	var totalWeight int64
	for _, o := range p.ready {
		if o.t.Core == t.Core {
			totalWeight += o.weight
		}
	}
	if totalWeight == 0 {
		totalWeight = e.weight
	}
	fairShare := sliceNS * e.weight / totalWeight
	e.lag += ranNS - fairShare
}
