//go:build !linux

package network

import (
	"net"
	"time"
)

// Only the idle period is portable; interval and count keep the OS defaults.
func setKeepAlive(conn net.Conn, keepAlive bool, keepAliveIdle time.Duration, keepAliveCount int, keepAliveIntvl time.Duration) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetKeepAlive(keepAlive); err != nil {
		return err
	}

	if !keepAlive {
		return nil
	}

	return tcpConn.SetKeepAlivePeriod(keepAliveIdle)
}
