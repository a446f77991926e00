package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	gserr "gdbstub/internal/errors"
	"gdbstub/util"
)

// SSHConfig holds everything needed to reach an SSH gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// KeepAlive is the interval between keepalive requests.  Zero
	// disables them.
	KeepAlive time.Duration

	// Prompt reads passwords and passphrases.  Nil reads them from the
	// terminal.
	Prompt Prompter
}

// SSHTunnel implements [Tunnel] over golang.org/x/crypto/ssh.
type SSHTunnel struct {
	config *SSHConfig
	client *ssh.Client
	logger *util.Logger
	mu     sync.RWMutex
	alive  bool
}

var _ Tunnel = (*SSHTunnel)(nil)

// NewSSHTunnel creates a tunnel that is ready to [SSHTunnel.Connect].
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = util.NewLogger(0)
	}
	return &SSHTunnel{config: cfg, logger: logger.Named("ssh")}
}

// Connect dials the gateway and completes the handshake.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	authMethods, err := BuildAuthMethods(t.config)
	if err != nil {
		return gserr.WrapSSH("auth", t.config.Host, t.config.Port, err)
	}

	hkCallback, err := hostKeyCallback(t.config)
	if err != nil {
		return gserr.WrapSSH("hostkey", t.config.Host, t.config.Port, err)
	}

	// The handshake error only carries the host key failure as text,
	// so it is recorded on the way through.
	var hostKeyErr error
	sshCfg := &ssh.ClientConfig{
		User: t.config.User,
		Auth: authMethods,
		HostKeyCallback: func(host string, remote net.Addr, key ssh.PublicKey) error {
			if err := hkCallback(host, remote, key); err != nil {
				hostKeyErr = err
				return err
			}
			return nil
		},
		Timeout: t.config.ConnTimeout,
	}

	addr := util.FormatAddr(t.config.Host, t.config.Port)
	t.logger.Debug("dialing %s as %s", addr, t.config.User)

	dialer := net.Dialer{Timeout: t.config.ConnTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			err = fmt.Errorf("%w: %v", gserr.ErrTimeout, err)
		}
		return gserr.Wrap("dial", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, sshCfg)
	if err != nil {
		tcpConn.Close()
		switch {
		case hostKeyErr != nil:
			err = fmt.Errorf("%w: %v", gserr.ErrHostKeyMismatch, hostKeyErr)
		case strings.Contains(err.Error(), "unable to authenticate"):
			err = fmt.Errorf("%w: %v", gserr.ErrAuthFailed, err)
		}
		return gserr.WrapSSH("handshake", t.config.Host, t.config.Port, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	t.mu.Lock()
	t.client = client
	t.alive = true
	t.mu.Unlock()

	done := make(chan struct{})
	go t.monitor(client, done)
	if t.config.KeepAlive > 0 {
		go t.keepAlive(client, t.config.KeepAlive, done)
	}
	return nil
}

// Listen implements [Tunnel].
func (t *SSHTunnel) Listen(bindAddr string, port int) (net.Listener, error) {
	t.mu.RLock()
	client, alive := t.client, t.alive
	t.mu.RUnlock()

	if !alive || client == nil {
		return nil, gserr.ErrNotConnected
	}

	ln, err := listenRemoteForward(client, bindAddr, port)
	if err != nil {
		return nil, gserr.WrapSSH("forward", t.config.Host, t.config.Port, err)
	}
	t.logger.Verbose("gateway %s forwards port %d", t.config.Host, ln.Addr().(*net.TCPAddr).Port)
	return ln, nil
}

// Close shuts down the SSH connection.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alive = false
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// IsAlive implements [Tunnel].
func (t *SSHTunnel) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alive
}

// monitor blocks until the SSH connection closes and flips the alive
// flag.
func (t *SSHTunnel) monitor(client *ssh.Client, done chan<- struct{}) {
	err := client.Wait()
	close(done)

	t.mu.Lock()
	if t.client == client || t.client == nil {
		t.alive = false
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("session closed: %v", err)
	} else {
		t.logger.Debug("session closed")
	}
}

// keepAlive pings the gateway until the session ends.  An unanswered
// ping closes the client, which ends the forwarded listener too.
func (t *SSHTunnel) keepAlive(client *ssh.Client, every time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				t.logger.Warn("gateway keepalive failed: %v", err)
				client.Close()
				return
			}
		}
	}
}
