// Package config holds the build-time tunables and feature switches named
// in spec.md §6. Tunables are plain constants so the compiler can fold
// them into array sizes and bounds checks the way the teacher sizes its
// fixed kernel tables (maxTasks, maxEndpoints, mailboxSlots).
package config

const (
	// PriorityMax is the number of fixed-priority levels (spec.md §4.E:
	// "Priorities 0 … P−1, P≥2; idle thread at priority −1").
	PriorityMax = 32

	// MaxTimeSlice is the fixed-priority/EDF-NRT round-robin quantum, in
	// nanoseconds.
	MaxTimeSlice = 10_000_000 // 10ms

	// StackMin is the smallest stack a thread may be created with, in
	// bytes, including the watermark sentinel word.
	StackMin = 1024

	// MaxProcessImageSize bounds a single process image allocation from
	// the hal.ImagePool.
	MaxProcessImageSize = 16 * 1024

	// SystemModeProcessStackSize is the size of the kernel-mode stack used
	// to service a user thread's system calls.
	SystemModeProcessStackSize = 2048

	// LockNestingCeiling is the depth at which GlobalIRQLock treats
	// further nesting as a fatal misuse rather than legitimate reentrancy
	// (spec.md §4.C).
	LockNestingCeiling = 256
)
