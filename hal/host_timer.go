//go:build !tinygo

package hal

import (
	"sync"
	"time"
)

// hostTimer backs hal.Timer with the host wall clock. There is no hardware
// counter to race against on the host, but the public shape (TicksNow,
// SetDeadline, SetTime) matches the real-hardware implementation so
// kernel/timer exercises the same code path in tests as on target.
type hostTimer struct {
	mu       sync.Mutex
	base     time.Time
	offsetNS int64 // added to time.Since(base) by SetTime, never negative net drift
	armed    *time.Timer
	deadline uint64
	fn       func()
}

func newHostTimer() *hostTimer {
	return &hostTimer{base: time.Now()}
}

func (t *hostTimer) nowLocked() uint64 {
	return uint64(time.Since(t.base).Nanoseconds() + t.offsetNS)
}

func (t *hostTimer) TicksNow() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nowLocked()
}

// FrequencyHz: the host timer reports nanosecond ticks, i.e. 1GHz, so the
// ticks<->ns rational conversion in kernel/timer is the identity on host.
func (t *hostTimer) FrequencyHz() uint64 { return 1_000_000_000 }

func (t *hostTimer) SetDeadline(ticks uint64, fn func()) {
	t.mu.Lock()
	if t.armed != nil {
		t.armed.Stop()
		t.armed = nil
	}
	t.deadline = ticks
	t.fn = fn
	if ticks == 0 || fn == nil {
		t.mu.Unlock()
		return
	}
	now := t.nowLocked()
	var d time.Duration
	if ticks > now {
		d = time.Duration(ticks - now)
	}
	t.armed = time.AfterFunc(d, func() {
		t.mu.Lock()
		armedFn := t.fn
		t.armed = nil
		t.mu.Unlock()
		if armedFn != nil {
			armedFn()
		}
	})
	t.mu.Unlock()
}

func (t *hostTimer) SetTime(ticks uint64) {
	t.mu.Lock()
	now := t.nowLocked()
	if ticks > now {
		t.offsetNS += int64(ticks - now)
	}
	deadline, fn := t.deadline, t.fn
	t.mu.Unlock()

	if fn != nil && deadline != 0 && deadline <= ticks {
		fn()
	}
}
