package transport

import (
	"context"
	"net"
	"time"

	gserr "gdbstub/internal/errors"
	"gdbstub/internal/retry"
	"gdbstub/util"
)

// TCPListener binds a local TCP port.  While the address is still held
// by another socket, binding is retried according to Backoff.  Any
// other bind failure is permanent.
type TCPListener struct {
	Host string
	Port int

	// Backoff paces bind retries.  Nil binds once.
	Backoff *retry.Backoff
	Logger  *util.Logger
}

// Listen binds Host:Port.
func (l *TCPListener) Listen(ctx context.Context) (net.Listener, error) {
	addr := util.FormatAddr(l.Host, l.Port)
	lc := net.ListenConfig{}

	if l.Backoff == nil {
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			return nil, gserr.Wrap("listen", addr, err)
		}
		return ln, nil
	}

	b := *l.Backoff
	b.Notify = func(attempt int, err error, wait time.Duration) {
		if l.Logger != nil {
			l.Logger.Warn("%s busy (attempt %d), retrying in %s", addr, attempt, wait.Round(time.Millisecond))
		}
	}

	var ln net.Listener
	err := b.Do(ctx, func(int) error {
		var err error
		ln, err = lc.Listen(ctx, "tcp", addr)
		if err != nil && !util.IsAddrInUse(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, gserr.Wrap("listen", addr, err)
	}
	return ln, nil
}

// Close is a no-op for local listeners.
func (l *TCPListener) Close() error { return nil }
