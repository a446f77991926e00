package util

import (
	"errors"
	"net"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// FormatAddr returns "host:port", bracketing IPv6 hosts.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// IsAddrInUse reports whether err is a bind failure on an address that
// another socket still holds.
func IsAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// CurrentUser returns the login name used when an SSH gateway spec
// carries no user.
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "root"
}
