//go:build tinygo && baremetal && (rp2040 || rp2350)

package hal

import (
	"machine"
	"runtime/interrupt"
	"sync"

	"tinygo.org/x/drivers"
)

// tinyGoHAL is the real-hardware HAL for an ARM Cortex-M target: UART
// logging, a hardware timer's free-running counter split across a low/high
// register pair, the NVIC-backed interrupt controller, and a fixed RAM
// arena for process images.
type tinyGoHAL struct {
	logger *uartLogger
	timer  *tinyGoTimer
	ic     *tinyGoInterrupts
	pool   *tinyGoImagePool
}

func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{BaudRate: 115200, TX: machine.GP0, RX: machine.GP1})
	logger := &uartLogger{uart: uart}
	return &tinyGoHAL{
		logger: logger,
		timer:  newTinyGoTimer(),
		ic:     newTinyGoInterrupts(logger),
		pool:   newTinyGoImagePool(),
	}
}

func (h *tinyGoHAL) Logger() Logger                  { return h.logger }
func (h *tinyGoHAL) Timer() Timer                    { return h.timer }
func (h *tinyGoHAL) Interrupts() InterruptController { return h.ic }
func (h *tinyGoHAL) ImagePool() ImagePool            { return h.pool }
func (h *tinyGoHAL) Display() Display                { return nil }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

// tinyGoTimer wraps the board's free-running counter. The counter is
// exposed to software as two 32-bit halves (lo, hi); a reader must retry if
// hi changes between its two reads of hi, per spec.md §4.B.
type tinyGoTimer struct {
	mu       sync.Mutex
	freqHz   uint64
	deadline uint64
	fn       func()
	watchdog drivers.Watchdogger
}

func newTinyGoTimer() *tinyGoTimer {
	return &tinyGoTimer{freqHz: machine.TickFrequency()}
}

func (t *tinyGoTimer) TicksNow() uint64 {
	lo, hi := readTimerLoHi()
	return uint64(hi)<<32 | uint64(lo)
}

func (t *tinyGoTimer) FrequencyHz() uint64 { return t.freqHz }

func (t *tinyGoTimer) SetDeadline(ticks uint64, fn func()) {
	t.mu.Lock()
	t.deadline = ticks
	t.fn = fn
	t.mu.Unlock()
	armTimerInterrupt(ticks)
}

func (t *tinyGoTimer) SetTime(ticks uint64) {
	setTimerCounter(ticks)
	t.mu.Lock()
	deadline, fn := t.deadline, t.fn
	t.mu.Unlock()
	if fn != nil && deadline != 0 && deadline <= ticks {
		fn()
	}
}

// tinyGoInterrupts adapts the NVIC to hal.InterruptController via
// runtime/interrupt, the same package andypeng2015-tinygo's scheduler uses
// to mask interrupts around the scheduler lock (interrupt.Disable/Restore).
type tinyGoInterrupts struct {
	mu     sync.Mutex
	lines  map[InterruptID]func(any)
	args   map[InterruptID]any
	logger Logger
}

func newTinyGoInterrupts(logger Logger) *tinyGoInterrupts {
	return &tinyGoInterrupts{
		lines:  make(map[InterruptID]func(any)),
		args:   make(map[InterruptID]any),
		logger: logger,
	}
}

func (ic *tinyGoInterrupts) Register(id InterruptID, fn func(any), arg any) error {
	mask := interrupt.Disable()
	defer interrupt.Restore(mask)
	if _, ok := ic.lines[id]; ok {
		return ErrNotImplemented
	}
	ic.lines[id] = fn
	ic.args[id] = arg
	return nil
}

func (ic *tinyGoInterrupts) TryRegister(id InterruptID, fn func(any), arg any) bool {
	return ic.Register(id, fn, arg) == nil
}

func (ic *tinyGoInterrupts) Unregister(id InterruptID) {
	mask := interrupt.Disable()
	delete(ic.lines, id)
	delete(ic.args, id)
	interrupt.Restore(mask)
}

func (ic *tinyGoInterrupts) SetPending(id InterruptID) {
	mask := interrupt.Disable()
	fn, arg := ic.lines[id], ic.args[id]
	interrupt.Restore(mask)
	if fn != nil {
		fn(arg)
	}
}

func (ic *tinyGoInterrupts) SetPriority(id InterruptID, level uint8) {
	_ = id
	_ = level
}

func (ic *tinyGoInterrupts) SystemReboot() {
	if ic.logger != nil {
		ic.logger.WriteLineString("hal: system_reboot, resetting MCU")
	}
	machine.CPUReset()
}

// tinyGoImagePool carves the process image arena out of a fixed linker
// section; see hal/tinygo_memory.go for the arena declaration.
type tinyGoImagePool struct {
	mu   sync.Mutex
	free []int
}

func newTinyGoImagePool() *tinyGoImagePool {
	n := len(processImageArena) / processImageBlockBytes
	free := make([]int, n)
	for i := range free {
		free[i] = n - 1 - i
	}
	return &tinyGoImagePool{free: free}
}

func (p *tinyGoImagePool) Allocate(size int) ([]byte, int, bool) {
	if size > processImageBlockBytes {
		return nil, 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return nil, 0, false
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	off := idx * processImageBlockBytes
	return processImageArena[off : off+processImageBlockBytes], processImageBlockBytes, true
}

func (p *tinyGoImagePool) Deallocate(block []byte) {
	if len(block) == 0 {
		return
	}
	idx := (blockOffset(&block[0])) / processImageBlockBytes
	p.mu.Lock()
	p.free = append(p.free, idx)
	p.mu.Unlock()
}
