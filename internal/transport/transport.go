// Package transport opens the socket a debugger connects to.  The
// listener either binds locally or asks an SSH gateway to forward one
// of its ports back to the stub.
package transport

import (
	"context"
	"net"
)

// Listener opens the endpoint the debugger attaches to.
type Listener interface {
	// Listen binds the endpoint.  The returned listener belongs to the
	// caller.
	Listen(ctx context.Context) (net.Listener, error)

	// Close releases anything Listen set up besides the returned
	// listener (an SSH session, for example).  Plain listeners return
	// nil.
	Close() error
}
