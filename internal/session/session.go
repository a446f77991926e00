// Package session represents one debugger attachment: the accepted
// connection, where user-visible outcome lines go, and the logging and
// metrics sinks shared by everything serving that debugger.
//
// The stub serves exactly one session per process, so a Session is
// created once, after the listener accepts, and closed when the
// protocol engine reports the debugger gone.
package session

import (
	"fmt"
	"io"
	"net"
	"os"

	"gdbstub/internal/conn"
	"gdbstub/internal/metrics"
	"gdbstub/util"
)

// Session encapsulates the runtime context of a single debugger.
type Session struct {
	Conn    conn.Connection
	Remote  string
	Stdout  io.Writer
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// New wraps an accepted connection.  A nil stdout selects os.Stdout and
// a nil logger a quiet one.
func New(c net.Conn, stdout io.Writer, logger *util.Logger, m *metrics.Collector) *Session {
	if stdout == nil {
		stdout = os.Stdout
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	sock := conn.New(c, m)
	return &Session{
		Conn:    sock,
		Remote:  sock.RemoteAddr(),
		Stdout:  stdout,
		Logger:  logger,
		Metrics: m,
	}
}

// Report writes one outcome line for the user.
func (s *Session) Report(format string, args ...interface{}) {
	fmt.Fprintf(s.Stdout, format+"\n", args...)
}

// Close drops the debugger connection.
func (s *Session) Close() error {
	return s.Conn.Close()
}
