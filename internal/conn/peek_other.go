//go:build !unix

package conn

import "net"

func newSource(c net.Conn) source { return newPump(c) }
