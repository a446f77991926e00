// Package stop translates execution-core outcomes into the stop reasons
// reported to the debugger.
//
// The mapping is fixed: a completed unit is a finished step, a halted
// target is reported as terminated by SIGSTOP, and a debugger interrupt
// is answered with SIGTRAP without consulting the target at all.
package stop

import (
	"fmt"

	"gdbstub/internal/emu"
)

// Signal is a GDB signal number.  Zero means "no signal".
type Signal uint8

// Signal numbers as GDB encodes them on the wire (gdb/signals.def),
// which differ from host signal numbers.
const (
	NoSignal Signal = 0
	SIGHUP   Signal = 1
	SIGINT   Signal = 2
	SIGQUIT  Signal = 3
	SIGILL   Signal = 4
	SIGTRAP  Signal = 5
	SIGABRT  Signal = 6
	SIGKILL  Signal = 9
	SIGSEGV  Signal = 11
	SIGTERM  Signal = 15
	SIGSTOP  Signal = 17
)

var signalNames = map[Signal]string{
	SIGHUP:  "SIGHUP",
	SIGINT:  "SIGINT",
	SIGQUIT: "SIGQUIT",
	SIGILL:  "SIGILL",
	SIGTRAP: "SIGTRAP",
	SIGABRT: "SIGABRT",
	SIGKILL: "SIGKILL",
	SIGSEGV: "SIGSEGV",
	SIGTERM: "SIGTERM",
	SIGSTOP: "SIGSTOP",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SIG#%d", uint8(s))
}

// Kind classifies a stop reason.
type Kind int

const (
	// DoneStep: a single-step request completed.
	DoneStep Kind = iota
	// SignalDelivered: the target stopped with a signal and can be
	// resumed.
	SignalDelivered
	// Terminated: the target was terminated by a signal and cannot be
	// resumed.
	Terminated
	// Exited: the target exited with a code.
	Exited
)

func (k Kind) String() string {
	switch k {
	case DoneStep:
		return "done-step"
	case SignalDelivered:
		return "signal"
	case Terminated:
		return "terminated"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Reason is a protocol-facing stop reason.
type Reason struct {
	Kind   Kind
	Signal Signal // DoneStep, SignalDelivered, Terminated
	Code   uint8  // Exited
}

func (r Reason) String() string {
	switch r.Kind {
	case DoneStep:
		return "done-step"
	case Exited:
		return fmt.Sprintf("exited(%d)", r.Code)
	default:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Signal)
	}
}

// Final reports whether the target cannot be resumed after r.
func (r Reason) Final() bool {
	return r.Kind == Terminated || r.Kind == Exited
}

// FromEvent maps an execution event to its stop reason.
func FromEvent(ev emu.Event) Reason {
	switch ev {
	case emu.Halted:
		return Reason{Kind: Terminated, Signal: SIGSTOP}
	default:
		return Reason{Kind: DoneStep, Signal: SIGTRAP}
	}
}

// Interrupt is the stop reason answering a debugger interrupt request.
func Interrupt() Reason {
	return Reason{Kind: SignalDelivered, Signal: SIGTRAP}
}
