//go:build linux

package network

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

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

	if err := tcpConn.SetKeepAlivePeriod(keepAliveIdle); err != nil {
		return err
	}

	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if keepAliveIntvl > 0 {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(keepAliveIntvl.Seconds()))
			if sockErr != nil {
				return
			}
		}
		if keepAliveCount > 0 {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepAliveCount)
		}
	})
	if err != nil {
		return err
	}

	return sockErr
}
