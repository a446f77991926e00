package core

import (
	"gdbstub/internal/conn"
	"gdbstub/internal/metrics"
	"gdbstub/internal/rsp"
	"gdbstub/internal/stop"
	"gdbstub/internal/target"
)

// Wait is what the target produced while the debugger waited on it:
// either one byte of incoming data or a stop reason, never both.
type Wait struct {
	Incoming bool
	Byte     byte
	Stop     stop.Reason
}

// BlockingEventLoop connects a target to the blocking driver.
type BlockingEventLoop[U target.Addr] interface {
	// WaitForStopReason runs t until it stops or the debugger sends
	// data.  Only connection errors are returned.
	WaitForStopReason(t target.Target[U], c conn.Connection) (Wait, error)
	// OnInterrupt answers a debugger interrupt.  It reports false when
	// the target cannot be stopped yet and must keep running.
	OnInterrupt(t target.Target[U]) (stop.Reason, bool)
}

// EmuLoop drives targets whose execution core runs on the loop's own
// goroutine: a target is paused whenever Run is not in progress, so an
// interrupt needs no action against it.
type EmuLoop[U target.Addr] struct{}

// WaitForStopReason implements BlockingEventLoop.  A failed peek counts
// as data available, so that the following read surfaces the error.
func (EmuLoop[U]) WaitForStopReason(t target.Target[U], c conn.Connection) (Wait, error) {
	poll := func() bool {
		ok, err := c.Peek()
		return ok || err != nil
	}

	ev := t.Exec().Run(poll)
	if ev.IncomingData {
		b, err := c.ReadByte()
		if err != nil {
			return Wait{}, err
		}
		return Wait{Incoming: true, Byte: b}, nil
	}
	return Wait{Stop: stop.FromEvent(ev.Event)}, nil
}

// OnInterrupt implements BlockingEventLoop.
func (EmuLoop[U]) OnInterrupt(t target.Target[U]) (stop.Reason, bool) {
	if t.Exec().Running() {
		return stop.Reason{}, false
	}
	return stop.Interrupt(), true
}

// RunBlocking drives eng until the debugger goes away.  While the
// target is paused the driver blocks on the connection; while it runs,
// loop decides when to look at the connection.  The returned error is
// fatal: a connection failure or a request the target rejects.
func RunBlocking[U target.Addr](
	eng *rsp.Engine[U],
	loop BlockingEventLoop[U],
	t target.Target[U],
	c conn.Connection,
	m *metrics.Collector,
) (rsp.Ending, error) {
	for {
		switch eng.State() {
		case rsp.Disconnected:
			return eng.Ending(), nil

		case rsp.Idle:
			b, err := c.ReadByte()
			if err != nil {
				return rsp.Ending{}, err
			}
			if err := eng.Incoming(b); err != nil {
				return rsp.Ending{}, err
			}

		case rsp.Interrupted:
			if r, ok := loop.OnInterrupt(t); ok {
				m.InterruptServed()
				if err := eng.ReportStop(r); err != nil {
					return rsp.Ending{}, err
				}
				continue
			}
			fallthrough

		case rsp.Running:
			w, err := loop.WaitForStopReason(t, c)
			if err != nil {
				return rsp.Ending{}, err
			}
			if w.Incoming {
				err = eng.Incoming(w.Byte)
			} else {
				err = eng.ReportStop(w.Stop)
			}
			if err != nil {
				return rsp.Ending{}, err
			}
		}
	}
}
