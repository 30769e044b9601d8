package lock

import "sync/atomic"

// DeepSleepLock is a veto counter: any holder (a driver mid-transaction, a
// thread inside a latency-sensitive section) prevents the idle thread from
// dropping the core into a deep-sleep power state, since waking from deep
// sleep costs far more than the OS timer's ordinary tick latency.
type DeepSleepLock struct {
	depth atomic.Int32
}

// Acquire vetoes deep sleep until a matching Release.
func (d *DeepSleepLock) Acquire() { d.depth.Add(1) }

// Release withdraws one veto.
func (d *DeepSleepLock) Release() { d.depth.Add(-1) }

// SafeToSleep reports whether no one currently vetoes deep sleep.
func (d *DeepSleepLock) SafeToSleep() bool { return d.depth.Load() == 0 }
