// Package rsp is a minimal GDB remote serial protocol engine.
//
// The engine owns packet framing and command dispatch for one debugger
// connection.  It never drives the target itself: it consumes raw bytes
// handed to it by the control loop, applies debugger commands through
// the target's capabilities, and tells the loop what to do next through
// its [State].  Stop reasons travel the other way, from the loop into
// [Engine.ReportStop].
package rsp

import (
	"fmt"
	"io"

	gserr "gdbstub/internal/errors"
	"gdbstub/internal/metrics"
	"gdbstub/internal/stop"
	"gdbstub/internal/target"
	"gdbstub/util"
)

// State is what the engine expects from the control loop next.
type State int

const (
	// Idle: the target is paused and the engine waits for commands.
	Idle State = iota
	// Running: the debugger resumed the target.  The loop runs it and
	// reports either incoming bytes or a stop reason.
	Running
	// Interrupted: the debugger asked to stop the target.  The loop
	// answers with a synthesized stop reason.
	Interrupted
	// Disconnected: the session is over; see [Engine.Ending].
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Interrupted:
		return "interrupted"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DisconnectReason says why a session ended without a fatal error.
type DisconnectReason int

const (
	// Disconnect: the debugger detached (D).
	Disconnect DisconnectReason = iota
	// TargetExited: an exit stop reason was reported.
	TargetExited
	// TargetTerminated: a terminating signal was reported.
	TargetTerminated
	// Kill: the debugger sent a kill request (k).
	Kill
)

func (r DisconnectReason) String() string {
	switch r {
	case Disconnect:
		return "disconnect"
	case TargetExited:
		return "target-exited"
	case TargetTerminated:
		return "target-terminated"
	case Kill:
		return "kill"
	default:
		return "unknown"
	}
}

// Ending describes a finished session.
type Ending struct {
	Reason DisconnectReason
	// Stop is the final stop reason for TargetExited and
	// TargetTerminated.
	Stop stop.Reason
}

// Output is where replies go.  Each reply is flushed as a whole.
type Output interface {
	io.Writer
	Flush() error
}

// Options configure an Engine.
type Options struct {
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Engine is the protocol state machine for one debugger connection.
type Engine[U target.Addr] struct {
	t       target.Target[U]
	out     Output
	log     *util.Logger
	metrics *metrics.Collector

	p      parser
	noAck  bool
	state  State
	ending Ending

	last     []byte      // last reply, for retransmission on '-'
	lastStop stop.Reason // answered to '?'
}

// New returns an Engine serving t whose replies are written to out.
// A freshly attached target is reported as stopped by SIGTRAP.
func New[U target.Addr](t target.Target[U], out Output, opts Options) *Engine[U] {
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &Engine[U]{
		t:        t,
		out:      out,
		log:      logger.Named("rsp"),
		metrics:  opts.Metrics,
		lastStop: stop.Interrupt(),
	}
}

// State returns what the engine expects next.
func (e *Engine[U]) State() State { return e.state }

// Ending returns how the session ended.  Only meaningful once State is
// Disconnected.
func (e *Engine[U]) Ending() Ending { return e.ending }

// NoAck reports whether acknowledgements were switched off.
func (e *Engine[U]) NoAck() bool { return e.noAck }

// Incoming feeds one byte from the debugger.  The returned error is
// fatal to the session: either the reply could not be written or the
// debugger requested something the target rejects.
func (e *Engine[U]) Incoming(b byte) error {
	if e.state == Disconnected {
		return nil
	}

	switch e.p.feed(b) {
	case frameNone, frameAck:
		return nil

	case frameNack:
		if e.noAck || e.last == nil {
			return nil
		}
		e.log.Debug("retransmitting last reply")
		return e.send(e.last)

	case frameInterrupt:
		if e.state == Running || e.state == Idle {
			e.log.Debug("interrupt requested")
			e.state = Interrupted
		}
		return nil

	case frameBadChecksum, frameOverflow:
		e.log.Debug("dropping corrupt packet")
		if e.noAck {
			return nil
		}
		return e.raw(nack)
	}

	if !e.noAck {
		if err := e.raw(ack); err != nil {
			return err
		}
	}
	pkt := e.p.packet()
	e.metrics.PacketHandled()

	if e.state != Idle {
		// All-stop mode: nothing but an interrupt is meaningful while
		// the target runs.
		e.log.Debug("ignoring %q while %s", pkt, e.state)
		return nil
	}
	e.log.Debug("<- %s", pkt)
	return e.dispatch(pkt)
}

// ReportStop answers a pending continue, step or interrupt with r.  A
// final stop reason ends the session.
func (e *Engine[U]) ReportStop(r stop.Reason) error {
	if e.state == Disconnected {
		return nil
	}
	e.lastStop = r
	e.metrics.StopReported(r.String())

	switch r.Kind {
	case stop.Exited:
		e.end(TargetExited, r)
	case stop.Terminated:
		e.end(TargetTerminated, r)
	default:
		e.state = Idle
	}
	return e.reply(stopReply(r))
}

func (e *Engine[U]) end(reason DisconnectReason, r stop.Reason) {
	e.state = Disconnected
	e.ending = Ending{Reason: reason, Stop: r}
}

// stopReply encodes r as a stop reply packet.
func stopReply(r stop.Reason) string {
	switch r.Kind {
	case stop.Exited:
		return fmt.Sprintf("W%02x", r.Code)
	case stop.Terminated:
		return fmt.Sprintf("X%02x", uint8(r.Signal))
	default:
		return fmt.Sprintf("S%02x", uint8(r.Signal))
	}
}

// ── output ───────────────────────────────────────────────────────────

func (e *Engine[U]) reply(payload string) error {
	e.log.Debug("-> %s", payload)
	e.last = []byte(payload)
	return e.send(e.last)
}

func (e *Engine[U]) send(payload []byte) error {
	if err := writePacket(e.out, payload); err != nil {
		return err
	}
	return e.out.Flush()
}

func (e *Engine[U]) raw(b byte) error {
	if _, err := e.out.Write([]byte{b}); err != nil {
		return err
	}
	return e.out.Flush()
}

// errno replies Exx for a non-fatal failure.
func (e *Engine[U]) errno(code uint8, err error) error {
	if err != nil {
		e.log.Debug("E%02x: %v", code, err)
		e.metrics.RecordError(err.Error())
	}
	return e.reply(fmt.Sprintf("E%02x", code))
}

// rejected reports whether err must end the session.
func rejected(err error) bool {
	return gserr.Is(err, gserr.ErrSignalUnsupported)
}
