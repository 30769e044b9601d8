package app

import (
	"time"

	"rtcore/hal"
	"rtcore/kernel"
)

// Config controls which demo workload Boot schedules. The demo threads
// exist to give the host visualizer (cmd/rtcore-sim) something to show
// and to exercise priority inheritance, timed sleep, and the semaphore's
// FIFO wakeup order on every boot.
type Config struct {
	// Workers is the number of fixed-priority demo worker threads.
	Workers int
}

// DefaultConfig is used by New/Run.
var DefaultConfig = Config{Workers: 3}

// System is the booted kernel plus whatever demo state Boot attached to
// it, returned so a host harness can inspect scheduler state for the
// visualizer or for tests.
type System struct {
	Kernel *kernel.Kernel
}

// New boots the kernel with DefaultConfig and returns the step function
// hal.RunWindow/RunHeadless calls once per frame.
func New(h hal.HAL) func() error {
	sys := Boot(h, DefaultConfig)
	return sys.step
}

// NewWithConfig boots the kernel with cfg.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	sys := Boot(h, cfg)
	return sys.step
}

// Run boots and blocks forever, the TinyGo entry point's shape.
func Run(h hal.HAL) {
	step := New(h)
	for {
		if err := step(); err != nil {
			return
		}
		time.Sleep(16 * time.Millisecond)
	}
}

// RunWithConfig is Run with an explicit Config.
func RunWithConfig(h hal.HAL, cfg Config) {
	step := NewWithConfig(h, cfg)
	for {
		if err := step(); err != nil {
			return
		}
		time.Sleep(16 * time.Millisecond)
	}
}

// Boot constructs the kernel, installs the fatal handler, schedules the
// demo workload, and starts every core's dispatcher loop on its own
// goroutine. It returns once the dispatchers are running; they do not
// stop on their own.
func Boot(h hal.HAL, cfg Config) *System {
	installFatalHandler(h)

	k := kernel.New(h)
	scheduleDemoWorkload(k, cfg)
	scheduleDemoProcess(k)

	go k.Start()

	return &System{Kernel: k}
}

// step is the per-frame hook hal.RunWindow/RunHeadless calls. The
// dispatcher loops run on their own goroutines from Boot onward, so there
// is nothing to drive here; cmd/rtcore-sim reads Kernel state directly
// for its visualization instead of going through this hook.
func (s *System) step() error {
	return nil
}
