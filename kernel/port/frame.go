// Package port simulates the CPU-port responsibilities of spec.md §4.A:
// building a thread's initial execution context, handing dispatch control
// from one thread to another, the MPU enable/disable pair, and decoding a
// raw fault into the kernel's FaultClass taxonomy.
//
// A real Cortex-M port builds a frame of saved registers on a thread's own
// stack and restores it with an exception return. A goroutine's stack
// cannot be saved and restored from the outside, so a Frame here is a pair
// of handoff gates: the owning goroutine parks on its own gate until the
// dispatcher signals it, and signals the dispatcher's gate back when it
// yields or blocks. Exactly one goroutine per core is ever runnable at a
// time, which is the property the real two-context-save-slot hardware
// model gives for free and this package has to build by hand.
package port

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Frame is the per-thread dispatch handle. It does not carry real register
// state; the stack and watermark fields exist so kernel/thread can still
// enforce the stack-overflow sentinel check spec.md §4.D requires.
type Frame struct {
	wake   chan struct{}
	parked chan struct{}

	// done and preemptRequested are each written by one goroutine and
	// read by another running on a different core's dispatcher; the pad
	// between them keeps the two words off the same cache line.
	done atomic.Bool
	_    cpu.CacheLinePad
	preemptRequested atomic.Bool
	_                cpu.CacheLinePad

	stack     []byte
	watermark int
	userspace bool
}

// NewFrame builds the initial frame for a freshly created thread over
// stack, stamping the overflow watermark when the stack has room for it.
// The entry function is not part of the frame; Start supplies it.
func NewFrame(stack []byte, userspace bool) *Frame {
	f := &Frame{
		wake:      make(chan struct{}, 1),
		parked:    make(chan struct{}, 1),
		stack:     stack,
		userspace: userspace,
	}
	if len(stack) >= 4 {
		f.watermark = 0
		stamp(stack)
	}
	return f
}

// Start launches entry on a new goroutine gated by f. The goroutine blocks
// immediately until the first Dispatch(f), and signals parked once entry
// returns, so the dispatcher that made the final Dispatch call observes
// thread exit the same way it observes an ordinary ParkSelf.
func (f *Frame) Start(entry func()) {
	go func() {
		<-f.wake
		entry()
		f.done.Store(true)
		f.parked <- struct{}{}
	}()
}

// Dispatch hands control to f and blocks the calling core's dispatcher
// until f parks again (via ParkSelf) or its entry function returns. It
// reports whether the thread has now finished running for good.
func (f *Frame) Dispatch() (finished bool) {
	f.wake <- struct{}{}
	<-f.parked
	return f.done.Load()
}

// ParkSelf is called by the running thread itself to yield control back
// to its core's dispatcher, blocking until the next Dispatch(f).
func (f *Frame) ParkSelf() {
	f.parked <- struct{}{}
	<-f.wake
}

// RequestPreempt marks f as owing a preemption check; TakePreemptRequest
// reads and clears the mark. This stands in for PendSV becoming pending on
// real hardware, since an arbitrary goroutine cannot be stopped
// mid-instruction from the outside the way a real core can. The kernel's
// dispatcher does not consult the mark: a dispatched thread keeps its core
// until it parks itself or its entry function returns.
func (f *Frame) RequestPreempt() { f.preemptRequested.Store(true) }

// TakePreemptRequest clears and returns whether a preemption was pending.
func (f *Frame) TakePreemptRequest() bool { return f.preemptRequested.Swap(false) }

// Userspace reports whether this frame belongs to a process thread
// expected to run with the MPU configured for restricted access.
func (f *Frame) Userspace() bool { return f.userspace }

var watermarkSentinel uint32 = 0xDEADBEEF

// stamp writes the overflow sentinel at the lowest word of the stack, the
// end a full stack touches last before overflowing into someone else's
// memory.
func stamp(stack []byte) {
	if len(stack) < 4 {
		return
	}
	stack[0] = byte(watermarkSentinel)
	stack[1] = byte(watermarkSentinel >> 8)
	stack[2] = byte(watermarkSentinel >> 16)
	stack[3] = byte(watermarkSentinel >> 24)
}

// WatermarkIntact reports whether the stack's sentinel word is still
// untouched, per spec.md §4.D's overflow-detection check.
func (f *Frame) WatermarkIntact() bool {
	if len(f.stack) < 4 {
		return true
	}
	want := [4]byte{byte(watermarkSentinel), byte(watermarkSentinel >> 8), byte(watermarkSentinel >> 16), byte(watermarkSentinel >> 24)}
	return f.stack[0] == want[0] && f.stack[1] == want[1] && f.stack[2] == want[2] && f.stack[3] == want[3]
}
