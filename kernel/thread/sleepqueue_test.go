package thread

import "testing"

func threadWithWake(id ID, wakeNS uint64) *Thread {
	th := newTestThread(id, 0, 0)
	th.SetWakeAtNS(wakeNS)
	return th
}

func TestSleepQueueOrdersByWakeTime(t *testing.T) {
	q := &SleepQueue{}
	a := threadWithWake(1, 300)
	b := threadWithWake(2, 100)
	c := threadWithWake(3, 200)
	q.Insert(a)
	q.Insert(b)
	q.Insert(c)

	due := q.PopDue(100)
	if len(due) != 1 || due[0] != b {
		t.Fatalf("PopDue(100) = %v, want [b]", due)
	}
	if got := q.NextWakeNS(); got != 200 {
		t.Fatalf("NextWakeNS() = %d, want 200", got)
	}

	due = q.PopDue(250)
	if len(due) != 1 || due[0] != c {
		t.Fatalf("PopDue(250) = %v, want [c]", due)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestSleepQueueRemove(t *testing.T) {
	q := &SleepQueue{}
	a := threadWithWake(1, 100)
	b := threadWithWake(2, 200)
	q.Insert(a)
	q.Insert(b)

	if !q.Remove(a) {
		t.Fatal("Remove(a) reported false for a present item")
	}
	if q.Remove(a) {
		t.Fatal("Remove(a) reported true on a second call")
	}
	if got := q.NextWakeNS(); got != 200 {
		t.Fatalf("NextWakeNS() after Remove = %d, want 200", got)
	}
}

func TestSleepQueueEmptyNextWake(t *testing.T) {
	q := &SleepQueue{}
	if got := q.NextWakeNS(); got != 0 {
		t.Fatalf("NextWakeNS() on empty queue = %d, want 0", got)
	}
	if due := q.PopDue(1 << 40); due != nil {
		t.Fatalf("PopDue on empty queue = %v, want nil", due)
	}
}
