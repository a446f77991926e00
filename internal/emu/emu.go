// Package emu is the execution core of the stub.  It owns the single
// logical execution mode of a debugging session and drives an
// [Interpreter] one unit of work at a time, interleaving a cheap
// connection poll so that a debugger interrupt is never starved by a
// long-running continue.
//
// The core is single-threaded: the control loop calls [Emu.Run], and
// the target is implicitly paused whenever Run is not on the stack.
// [Emu.Running] exposes that convention as an explicit flag.
package emu

import (
	"math"

	"gdbstub/internal/metrics"
)

// DefaultPollInterval is the number of units of work executed between
// two connection polls in [Continue] mode.
const DefaultPollInterval = 1024

// Event is the outcome of one unit of work.
type Event int

const (
	// DoneStep means one unit completed and the target did not halt.
	DoneStep Event = iota
	// Halted means the target reached a terminal condition.
	Halted
)

func (e Event) String() string {
	switch e {
	case DoneStep:
		return "done-step"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// ExecMode selects the termination policy of [Emu.Run].
type ExecMode int

const (
	// Continue runs units of work until the interpreter reports an
	// event or the poll callback reports incoming data.
	Continue ExecMode = iota
	// Step runs exactly one unit of work.
	Step
)

func (m ExecMode) String() string {
	switch m {
	case Continue:
		return "continue"
	case Step:
		return "step"
	default:
		return "unknown"
	}
}

// RunEvent is the result of a single [Emu.Run] call: either incoming
// connection data or an execution event, never both.
type RunEvent struct {
	IncomingData bool
	Event        Event // meaningful only when IncomingData is false
}

// Interpreter is the integration seam for a real instruction-level
// interpreter.  Step performs one minimal unit of progress.  It returns
// ok=false when the unit completed with nothing to report; a target
// that cannot make progress must report Halted rather than fail.
type Interpreter interface {
	Step() (ev Event, ok bool)
}

// Config tunes an [Emu].
type Config struct {
	// PollInterval is the number of units between connection polls in
	// Continue mode.  Zero selects DefaultPollInterval.
	PollInterval int
	// Metrics receives unit and poll counts.  May be nil.
	Metrics *metrics.Collector
}

// Emu drives an Interpreter according to the current ExecMode.
type Emu struct {
	interp   Interpreter
	interval uint32
	metrics  *metrics.Collector

	mode    ExecMode
	running bool

	// units is the lifetime unit counter.  It wraps at 2^64 by
	// definition; nothing in the core depends on its magnitude.
	units uint64
}

// New returns an Emu in Continue mode, as a freshly attached target
// is considered resumable until the debugger says otherwise.
func New(interp Interpreter, cfg Config) *Emu {
	interval := uint32(DefaultPollInterval)
	switch {
	case cfg.PollInterval <= 0:
	case uint64(cfg.PollInterval) > math.MaxUint32:
		interval = math.MaxUint32
	default:
		interval = uint32(cfg.PollInterval)
	}
	return &Emu{
		interp:   interp,
		interval: interval,
		metrics:  cfg.Metrics,
		mode:     Continue,
	}
}

// Mode returns the current execution mode.
func (e *Emu) Mode() ExecMode { return e.mode }

// SetMode changes the execution mode.  It must not be called while a
// Run is in progress.
func (e *Emu) SetMode(m ExecMode) {
	if e.running {
		panic("emu: SetMode called during Run")
	}
	e.mode = m
}

// Running reports whether a Run call is in progress.  Whenever it is
// false the target is paused.
func (e *Emu) Running() bool { return e.running }

// PollInterval returns the configured poll interval.
func (e *Emu) PollInterval() int { return int(e.interval) }

// Units returns the lifetime number of units executed, modulo 2^64.
func (e *Emu) Units() uint64 { return e.units }

// Step single-steps the interpreter.  A unit with nothing to report is
// a completed step.
func (e *Emu) Step() Event {
	e.units++
	e.metrics.UnitsExecuted(1)
	if ev, ok := e.interp.Step(); ok {
		return ev
	}
	return DoneStep
}

// Run executes the target in accordance with the current ExecMode.
//
// In Step mode exactly one unit runs and poll is never called.  In
// Continue mode poll is consulted before the first unit and then once
// every PollInterval units; the unit counter lives only for the
// duration of the call and is reset at each interval boundary, so it
// cannot overflow however long the target runs.
func (e *Emu) Run(poll func() bool) RunEvent {
	e.running = true
	defer func() { e.running = false }()

	if e.mode == Step {
		return RunEvent{Event: e.Step()}
	}

	var (
		cycle uint32
		done  uint64
	)
	defer func() {
		e.units += done
		e.metrics.UnitsExecuted(done)
	}()

	for {
		if cycle == 0 {
			e.metrics.Polled()
			if poll() {
				return RunEvent{IncomingData: true}
			}
		}
		if cycle++; cycle == e.interval {
			cycle = 0
		}

		done++
		if ev, ok := e.interp.Step(); ok {
			return RunEvent{Event: ev}
		}
	}
}

// RunToCompletion free-runs the target, ignoring any debugger, until it
// halts.  With an interpreter that never halts it does not return.
func (e *Emu) RunToCompletion() {
	e.running = true
	defer func() { e.running = false }()

	for e.Step() != Halted {
	}
}
