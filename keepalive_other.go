//go:build !linux

package irc

import "net"

// enableKeepAlive turns on SO_KEEPALIVE. Only the idle period can be tuned
// portably; interval and count keep the system defaults.
func enableKeepAlive(conn *net.TCPConn) error {
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}
	return conn.SetKeepAlivePeriod(keepAliveIdle)
}
