// Package tunnel lets a debugger attach through an SSH gateway.  The
// stub dials the gateway, asks it to open a port on its side, and
// receives every connection to that port as an SSH channel, so the
// debugger only needs to reach the gateway.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is an SSH session able to accept connections on the gateway.
type Tunnel interface {
	// Connect establishes the session to the gateway.
	Connect(ctx context.Context) error

	// Listen asks the gateway to accept connections on bindAddr:port
	// and hand them back through the session.  Port 0 lets the
	// gateway choose.
	Listen(bindAddr string, port int) (net.Listener, error)

	// Close tears down the session and every listener opened on it.
	Close() error

	// IsAlive reports whether the session is still up.
	IsAlive() bool
}
