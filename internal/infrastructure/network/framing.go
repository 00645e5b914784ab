package network

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"NSSaDS/ftp/internal/domain"
	"NSSaDS/ftp/pkg/config"
)

const (
	maxFrameSize  = 1 << 20
	burstReadSize = 4096
)

// FrameConn carries both phases of the protocol over one stream: framed
// text messages and the raw payload of get/put. Both read from the same
// buffered reader so nothing is lost when switching between them.
//
// With config.FramingLength every message is a 4-byte big-endian length
// followed by the payload. With config.FramingBurst a message is whatever
// the first read returns plus anything readable within the probe window,
// which can split or merge messages on slow or fast links.
type FrameConn struct {
	conn    net.Conn
	r       *bufio.Reader
	framing string
	timeout time.Duration
	probe   time.Duration
}

func NewFrameConn(conn net.Conn, framing string, timeout, probe time.Duration) *FrameConn {
	if probe <= 0 {
		probe = 20 * time.Millisecond
	}
	return &FrameConn{
		conn:    conn,
		r:       bufio.NewReaderSize(conn, burstReadSize),
		framing: framing,
		timeout: timeout,
		probe:   probe,
	}
}

// Read is the raw byte phase. Every call is bounded by the inactivity timeout.
func (c *FrameConn) Read(p []byte) (int, error) {
	c.setReadDeadline(c.timeout)
	return c.r.Read(p)
}

func (c *FrameConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.conn.Write(p)
}

func (c *FrameConn) Close() error {
	return c.conn.Close()
}

func (c *FrameConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ReadMessage waits up to idle for the next message; zero waits forever.
func (c *FrameConn) ReadMessage(idle time.Duration) (string, error) {
	if c.framing == config.FramingBurst {
		return c.readBurst(idle)
	}
	return c.readLength(idle)
}

func (c *FrameConn) WriteMessage(msg string) error {
	var payload []byte
	if c.framing == config.FramingBurst {
		payload = []byte(msg)
	} else {
		if len(msg) > maxFrameSize {
			return domain.ErrMessageTooLarge
		}
		payload = make([]byte, 4+len(msg))
		binary.BigEndian.PutUint32(payload, uint32(len(msg)))
		copy(payload[4:], msg)
	}

	if _, err := c.Write(payload); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Settle precedes a raw byte phase. Burst framing cannot tell where a message
// ends and payload starts, so the sender waits out the peer's probe window;
// length framing needs no pause.
func (c *FrameConn) Settle() {
	if c.framing == config.FramingBurst {
		time.Sleep(2 * c.probe)
	}
}

func (c *FrameConn) readLength(idle time.Duration) (string, error) {
	var header [4]byte

	c.setReadDeadline(idle)
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return "", err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return "", domain.ErrMessageTooLarge
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(c, payload); err != nil {
		return "", fmt.Errorf("truncated message: %w", err)
	}

	return string(payload), nil
}

func (c *FrameConn) readBurst(idle time.Duration) (string, error) {
	buf := make([]byte, burstReadSize)

	c.setReadDeadline(idle)
	n, err := c.r.Read(buf)
	if err != nil {
		return "", err
	}
	msg := append([]byte(nil), buf[:n]...)

	for {
		if c.r.Buffered() == 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.probe))
		}

		n, err = c.r.Read(buf)
		msg = append(msg, buf[:n]...)
		if err != nil {
			if isTimeout(err) || errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if len(msg) > maxFrameSize {
			return "", domain.ErrMessageTooLarge
		}
	}

	c.conn.SetReadDeadline(time.Time{})
	return string(msg), nil
}

func (c *FrameConn) setReadDeadline(d time.Duration) {
	if d > 0 {
		c.conn.SetReadDeadline(time.Now().Add(d))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
