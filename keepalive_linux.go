//go:build linux

package irc

import (
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// enableKeepAlive turns on SO_KEEPALIVE and tunes idle time, probe interval
// and probe count.
func enableKeepAlive(conn *net.TCPConn) error {
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var opErr error
	err = raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(keepAliveIdle.Seconds())); err != nil {
			opErr = errors.Wrap(err, "set TCP_KEEPIDLE")
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(keepAliveInterval.Seconds())); err != nil {
			opErr = errors.Wrap(err, "set TCP_KEEPINTVL")
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepAliveCount); err != nil {
			opErr = errors.Wrap(err, "set TCP_KEEPCNT")
		}
	})
	if err != nil {
		return err
	}
	return opErr
}
