package thread

import "sort"

// SleepQueue orders sleeping threads by absolute wake time, so the single
// earliest wake time is always at the head and nothing has to scan every
// sleeper. The kernel's dispatcher pops due sleepers from the head on each
// pass; no timer alarm is armed against the queue.
type SleepQueue struct {
	items []*Thread
}

// Insert adds t to the queue, keeping it sorted by WakeAtNS ascending.
func (q *SleepQueue) Insert(t *Thread) {
	at := t.WakeAtNS()
	i := sort.Search(len(q.items), func(i int) bool { return q.items[i].WakeAtNS() >= at })
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = t
}

// Remove drops t from the queue if present, for a thread that wakes early
// (wait/signal racing with a timed sleep).
func (q *SleepQueue) Remove(t *Thread) bool {
	for i, it := range q.items {
		if it == t {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// PopDue removes and returns every thread whose wake time is <= nowNS.
func (q *SleepQueue) PopDue(nowNS uint64) []*Thread {
	n := 0
	for n < len(q.items) && q.items[n].WakeAtNS() <= nowNS {
		n++
	}
	if n == 0 {
		return nil
	}
	due := q.items[:n]
	q.items = q.items[n:]
	return due
}

// NextWakeNS returns the earliest wake time in the queue, or 0 if empty.
func (q *SleepQueue) NextWakeNS() uint64 {
	if len(q.items) == 0 {
		return 0
	}
	return q.items[0].WakeAtNS()
}

func (q *SleepQueue) Len() int { return len(q.items) }
