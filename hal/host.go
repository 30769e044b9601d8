//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
)

type hostHAL struct {
	logger *hostLogger
	timer  *hostTimer
	ic     *hostInterrupts
	pool   *hostImagePool
	fb     *hostFramebuffer
}

// New returns a host HAL implementation: a wall-clock-backed Timer, an
// in-process InterruptController, a byte-arena ImagePool, and an optional
// framebuffer for the fault screen / visualizer.
func New() HAL {
	logger := &hostLogger{w: os.Stdout}
	return &hostHAL{
		logger: logger,
		timer:  newHostTimer(),
		ic:     newHostInterrupts(logger),
		pool:   newHostImagePool(2*1024*1024, 4096),
		fb:     newHostFramebuffer(320, 240),
	}
}

func (h *hostHAL) Logger() Logger                     { return h.logger }
func (h *hostHAL) Timer() Timer                       { return h.timer }
func (h *hostHAL) Interrupts() InterruptController    { return h.ic }
func (h *hostHAL) ImagePool() ImagePool               { return h.pool }
func (h *hostHAL) Display() Display                   { return hostDisplay{fb: h.fb} }

type hostDisplay struct{ fb *hostFramebuffer }

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
