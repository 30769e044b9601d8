//go:build tinygo && baremetal && (rp2040 || rp2350)

package hal

import "machine"

// readTimerLoHi implements the low/high race-tolerant read of the RP2 timer
// peripheral's free-running 64-bit counter (spec.md §4.B): read the high
// half, then the low half, then the high half again, and retry if the two
// high reads disagree (a carry happened mid-read).
func readTimerLoHi() (lo, hi uint32) {
	for {
		h1 := machine.Timer.RawHigh()
		l := machine.Timer.RawLow()
		h2 := machine.Timer.RawHigh()
		if h1 == h2 {
			return l, h1
		}
	}
}

func armTimerInterrupt(deadlineTicks uint64) {
	if deadlineTicks == 0 {
		machine.Timer.DisableAlarm(0)
		return
	}
	machine.Timer.SetAlarm(0, uint32(deadlineTicks))
}

func setTimerCounter(ticks uint64) {
	machine.Timer.SetRaw(uint32(ticks), uint32(ticks>>32))
}
