package emu

// Countdown is a synthetic interpreter: every unit of work succeeds
// without side effects until Budget units have run, at which point the
// target halts.  A zero Budget never halts.
//
// Once halted, every further Step reports Halted again.
type Countdown struct {
	Budget uint64
	done   uint64
}

// NewCountdown returns a Countdown that halts after budget units.
func NewCountdown(budget uint64) *Countdown {
	return &Countdown{Budget: budget}
}

// Step implements Interpreter.
func (c *Countdown) Step() (Event, bool) {
	if c.Budget == 0 {
		return DoneStep, false
	}
	if c.done < c.Budget {
		c.done++
	}
	if c.done == c.Budget {
		return Halted, true
	}
	return DoneStep, false
}

// Remaining returns how many units are left before the target halts.
func (c *Countdown) Remaining() uint64 {
	return c.Budget - c.done
}
