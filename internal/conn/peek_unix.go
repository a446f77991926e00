//go:build unix

package conn

import (
	"bufio"
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// fdSource reads a stream socket through a bufio.Reader and peeks the
// kernel receive queue with recv(MSG_PEEK|MSG_DONTWAIT).
type fdSource struct {
	rd  *bufio.Reader
	raw syscall.RawConn
}

func newSource(c net.Conn) source {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return newPump(c)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return newPump(c)
	}
	return &fdSource{rd: bufio.NewReader(c), raw: raw}
}

func (s *fdSource) ready() (bool, error) {
	if s.rd.Buffered() > 0 {
		return true, nil
	}

	var peekErr error
	err := s.raw.Control(func(fd uintptr) {
		var b [1]byte
		_, _, peekErr = unix.Recvfrom(int(fd), b[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
	})
	if err != nil {
		return false, err
	}
	switch {
	case peekErr == nil:
		// A zero-length result is an orderly shutdown; the read
		// reports it as EOF.
		return true, nil
	case errors.Is(peekErr, unix.EAGAIN), errors.Is(peekErr, unix.EWOULDBLOCK):
		return false, nil
	case errors.Is(peekErr, unix.EINTR):
		return false, nil
	default:
		return false, peekErr
	}
}

func (s *fdSource) ReadByte() (byte, error) { return s.rd.ReadByte() }
