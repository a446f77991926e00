package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"gdbstub/tunnel"
	"gdbstub/util"
)

// SSHListener opens the debugger endpoint on an SSH gateway.  The
// session is established by Listen and torn down by Close.
type SSHListener struct {
	// BindAddr is the gateway-side bind address ("" for the gateway's
	// default).
	BindAddr string
	// Port is the gateway-side port.  Zero lets the gateway choose.
	Port int

	tunnel *tunnel.SSHTunnel
	config *tunnel.SSHConfig
	logger *util.Logger
	mu     sync.Mutex
}

// NewSSHListener creates a listener that forwards bindAddr:port on the
// gateway described by cfg.
func NewSSHListener(cfg *tunnel.SSHConfig, bindAddr string, port int, logger *util.Logger) *SSHListener {
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &SSHListener{
		BindAddr: bindAddr,
		Port:     port,
		tunnel:   tunnel.NewSSHTunnel(cfg, logger),
		config:   cfg,
		logger:   logger,
	}
}

// Listen connects to the gateway and requests the forward.
func (l *SSHListener) Listen(ctx context.Context) (net.Listener, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.tunnel.IsAlive() {
		l.logger.Verbose("connecting to gateway %s@%s:%d",
			l.config.User, l.config.Host, l.config.Port)
		if err := l.tunnel.Connect(ctx); err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
	}

	ln, err := l.tunnel.Listen(l.BindAddr, l.Port)
	if err != nil {
		l.tunnel.Close()
		return nil, err
	}
	return ln, nil
}

// Close ends the gateway session.
func (l *SSHListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tunnel.Close()
}
