package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// tcpConn adapts a stream socket to chunk semantics: one Read is one
// delivery. Serial-over-TCP bridges forward each link notification as one
// write, so read boundaries track wire frames closely enough for the
// classifier heuristic.
type tcpConn struct {
	conn net.Conn
	buf  []byte

	writeMu sync.Mutex
}

func dialTCP(ctx context.Context, addr string, readBufferSize int) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial tcp %s: %w", addr, err)
	}

	return &tcpConn{
		conn: conn,
		buf:  make([]byte, readBufferSize),
	}, nil
}

// ReadChunk returns the next delivery. The scratch buffer is reused, so the
// result is copied out. Not safe for concurrent readers; the link layer
// serializes reads on one goroutine.
func (c *tcpConn) ReadChunk() ([]byte, error) {
	n, err := c.conn.Read(c.buf)
	if err != nil {
		return nil, err
	}

	chunk := make([]byte, n)
	copy(chunk, c.buf[:n])
	return chunk, nil
}

func (c *tcpConn) WriteChunk(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.conn.Write(p)
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}
