// Package conn adapts a debugger's byte stream to what the control
// loop needs: a non-blocking "is a byte available?" check and a
// blocking single-byte read that is only issued after the check said
// yes.  Outgoing packets are buffered and flushed whole.
package conn

import (
	"bufio"
	"io"
	"net"
	"sync"

	gserr "gdbstub/internal/errors"
	"gdbstub/internal/metrics"
)

// Connection is the byte transport between the stub and a debugger.
type Connection interface {
	// Peek reports whether a byte can be read without blocking.  It
	// never consumes input.
	Peek() (bool, error)
	// ReadByte returns the next byte, blocking until one arrives.
	ReadByte() (byte, error)
	// Write queues p for the debugger.
	Write(p []byte) (int, error)
	// Flush sends everything queued by Write.
	Flush() error
	// Close tears down the underlying stream.
	Close() error
}

// source is the read side of a Socket.
type source interface {
	ready() (bool, error)
	io.ByteReader
}

// Socket is a Connection over a net.Conn.
type Socket struct {
	conn    net.Conn
	src     source
	w       *bufio.Writer
	metrics *metrics.Collector
	addr    string
	once    sync.Once
}

var _ Connection = (*Socket)(nil)

// New wraps c.  Stream sockets are peeked directly through the kernel;
// other streams (SSH channels, pipes) are drained by a reader goroutine
// into a local queue that can be inspected without blocking.
func New(c net.Conn, m *metrics.Collector) *Socket {
	addr := ""
	if ra := c.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Socket{
		conn:    c,
		src:     newSource(c),
		w:       bufio.NewWriterSize(c, 4096),
		metrics: m,
		addr:    addr,
	}
}

// Peek implements Connection.
func (s *Socket) Peek() (bool, error) {
	ok, err := s.src.ready()
	if err != nil {
		return false, gserr.Wrap("peek", s.addr, err)
	}
	return ok, nil
}

// ReadByte implements Connection.
func (s *Socket) ReadByte() (byte, error) {
	b, err := s.src.ReadByte()
	if err != nil {
		return 0, gserr.Wrap("read", s.addr, err)
	}
	s.metrics.BytesReceived(1)
	return b, nil
}

// Write implements Connection.
func (s *Socket) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		return n, gserr.Wrap("write", s.addr, err)
	}
	return n, nil
}

// Flush implements Connection.
func (s *Socket) Flush() error {
	n := s.w.Buffered()
	if err := s.w.Flush(); err != nil {
		return gserr.Wrap("write", s.addr, err)
	}
	s.metrics.BytesSent(int64(n))
	return nil
}

// Close implements Connection.
func (s *Socket) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close()
		if p, ok := s.src.(*pump); ok {
			p.stop()
		}
	})
	return err
}

// RemoteAddr returns the debugger's address.
func (s *Socket) RemoteAddr() string { return s.addr }
