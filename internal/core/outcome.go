package core

import (
	"fmt"

	gserr "gdbstub/internal/errors"
	"gdbstub/internal/rsp"
	"gdbstub/internal/session"
	"gdbstub/internal/target"
)

// Outcome is how a debugging session ended.  Err is set for fatal
// errors, otherwise Ending says why the debugger went away.
type Outcome struct {
	Ending rsp.Ending
	Err    error
}

// String is the line printed for the user.
func (o Outcome) String() string {
	if gserr.IsTargetError(o.Err) {
		return fmt.Sprintf("gdbstub encountered a fatal error: debugger request rejected: %v", o.Err)
	}
	if o.Err != nil {
		return fmt.Sprintf("gdbstub encountered a fatal error: %v", o.Err)
	}
	switch o.Ending.Reason {
	case rsp.Disconnect:
		return "Program completed."
	case rsp.TargetExited:
		return fmt.Sprintf("Target exited with code %d!", o.Ending.Stop.Code)
	case rsp.TargetTerminated:
		return fmt.Sprintf("Target terminated with signal %s!", o.Ending.Stop.Signal)
	case rsp.Kill:
		return "GDB sent a kill command!"
	default:
		return fmt.Sprintf("Session ended: %s", o.Ending.Reason)
	}
}

// Serve runs one debugger session against t.  When the debugger
// detaches, the connection is dropped, onFreeRun (if set) is called and
// the target free-runs until it halts.
func Serve[U target.Addr](sess *session.Session, t target.Target[U], onFreeRun func()) Outcome {
	if err := target.CheckGuardRails(t); err != nil {
		return Outcome{Err: err}
	}

	eng := rsp.New(t, sess.Conn, rsp.Options{Logger: sess.Logger, Metrics: sess.Metrics})
	end, err := RunBlocking[U](eng, EmuLoop[U]{}, t, sess.Conn, sess.Metrics)
	if eng.NoAck() {
		sess.Logger.Debug("session ran in no-ack mode")
	}
	if err != nil {
		return Outcome{Err: err}
	}

	if end.Reason == rsp.Disconnect {
		sess.Close() //nolint:errcheck
		if onFreeRun != nil {
			onFreeRun()
		}
		t.Exec().RunToCompletion()
	}
	return Outcome{Ending: end}
}
