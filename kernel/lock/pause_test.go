package lock

import "testing"

func TestReleaseFiresYieldOnlyAtOutermostWithPendingWakeup(t *testing.T) {
	p := &KernelPause{}
	var fired int
	p.OnResumeYield(func() { fired++ })

	p.Acquire()
	p.Acquire()
	p.RequestWakeup()

	p.Release()
	if fired != 0 {
		t.Fatal("releasing an inner pause level should not fire the yield hook")
	}
	p.Release()
	if fired != 1 {
		t.Fatalf("releasing the outermost level with a pending wakeup should fire once, got %d", fired)
	}
}

func TestReleaseWithoutPendingWakeupDoesNothing(t *testing.T) {
	p := &KernelPause{}
	var fired int
	p.OnResumeYield(func() { fired++ })
	p.Acquire()
	p.Release()
	if fired != 0 {
		t.Fatal("Release with no RequestWakeup should not fire the yield hook")
	}
}

func TestPaused(t *testing.T) {
	p := &KernelPause{}
	if p.Paused() {
		t.Fatal("fresh KernelPause should report not paused")
	}
	p.Acquire()
	if !p.Paused() {
		t.Fatal("Paused() should be true after Acquire")
	}
	p.Release()
	if p.Paused() {
		t.Fatal("Paused() should be false once the outermost Release runs")
	}
}
