package tunnel

// forward.go - remote port forwarding for the debugger listener.
//
// ssh.Client.Listen only matches forwarded-tcpip channels whose bind
// address equals the one it requested, and several gateways echo a
// different one ("0.0.0.0" for ""), after which every debugger
// connection is refused.  The listener below registers the channel
// handler itself and accepts every forwarded channel.

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// ── Wire format structs (RFC 4254) ──────────────────────────────────

// forwardRequest is the payload of "tcpip-forward" and
// "cancel-tcpip-forward" (RFC 4254 §7.1).
type forwardRequest struct {
	Addr string
	Port uint32
}

// forwardReply carries the port the gateway picked when the request
// asked for port 0.
type forwardReply struct {
	Port uint32
}

// forwardedChannel is the open payload of a "forwarded-tcpip"
// channel (RFC 4254 §7.2).
type forwardedChannel struct {
	Addr       string
	Port       uint32
	OriginAddr string
	OriginPort uint32
}

// ── forwardListener ─────────────────────────────────────────────────

// forwardListener is a [net.Listener] whose connections arrive as SSH
// channels from the gateway.
type forwardListener struct {
	client   *ssh.Client
	req      forwardRequest
	incoming <-chan ssh.NewChannel
	done     chan struct{}
	once     sync.Once
}

// Accept waits for the next debugger connection through the gateway.
func (l *forwardListener) Accept() (net.Conn, error) {
	select {
	case <-l.done:
		return nil, net.ErrClosed
	case newCh, ok := <-l.incoming:
		if !ok {
			return nil, io.EOF
		}
		ch, reqs, err := newCh.Accept()
		if err != nil {
			return nil, fmt.Errorf("channel accept: %w", err)
		}
		go ssh.DiscardRequests(reqs)

		origin := &net.TCPAddr{}
		var payload forwardedChannel
		if err := ssh.Unmarshal(newCh.ExtraData(), &payload); err == nil {
			origin = &net.TCPAddr{IP: net.ParseIP(payload.OriginAddr), Port: int(payload.OriginPort)}
		}
		return &channelConn{Channel: ch, local: l.Addr(), remote: origin}, nil
	}
}

// Close cancels the forward on the gateway and unblocks Accept.
func (l *forwardListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		// The session may already be gone; nothing to do then.
		l.client.SendRequest("cancel-tcpip-forward", true, ssh.Marshal(&l.req)) //nolint:errcheck
	})
	return nil
}

// Addr returns the port open on the gateway.
func (l *forwardListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(l.req.Addr), Port: int(l.req.Port)}
}

// ── channelConn ──────────────────────────────────────────────────────

// channelConn adapts an [ssh.Channel] to [net.Conn].  Deadlines are not
// supported by SSH channels and are accepted silently.
type channelConn struct {
	ssh.Channel
	local, remote net.Addr
}

func (c *channelConn) LocalAddr() net.Addr                { return c.local }
func (c *channelConn) RemoteAddr() net.Addr               { return c.remote }
func (c *channelConn) SetDeadline(_ time.Time) error      { return nil }
func (c *channelConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *channelConn) SetWriteDeadline(_ time.Time) error { return nil }

// ── Constructor ──────────────────────────────────────────────────────

// listenRemoteForward asks the gateway to listen on bindAddr:port and
// returns a listener for the channels it forwards.
func listenRemoteForward(client *ssh.Client, bindAddr string, port int) (net.Listener, error) {
	// Must be registered before the request is sent, or an early
	// connection is rejected by the library.
	incoming := client.HandleChannelOpen("forwarded-tcpip")
	if incoming == nil {
		return nil, fmt.Errorf("forwarded-tcpip handler already registered")
	}

	req := forwardRequest{Addr: bindAddr, Port: uint32(port)}
	ok, payload, err := client.SendRequest("tcpip-forward", true, ssh.Marshal(&req))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tcpip-forward %s:%d denied by gateway", bindAddr, port)
	}
	if port == 0 {
		var reply forwardReply
		if err := ssh.Unmarshal(payload, &reply); err != nil {
			return nil, fmt.Errorf("tcpip-forward reply: %w", err)
		}
		req.Port = reply.Port
	}

	return &forwardListener{
		client:   client,
		req:      req,
		incoming: incoming,
		done:     make(chan struct{}),
	}, nil
}
