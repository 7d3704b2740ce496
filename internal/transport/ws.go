package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/duplex-audio-bridge/internal/frame"
)

// wsConn carries the device stream over a websocket. Message framing maps
// 1:1 onto deliveries, so chunk boundaries survive the hop exactly. Both
// text and binary messages surface as raw chunks; classification stays with
// the router, not the transport.
type wsConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func dialWS(ctx context.Context, target string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial websocket %s: %w", target, err)
	}

	return &wsConn{conn: conn}, nil
}

func (c *wsConn) ReadChunk() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteChunk sends command text as a text message and everything else as
// binary, mirroring how the device-side bridge distinguishes the two.
func (c *wsConn) WriteChunk(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	msgType := websocket.BinaryMessage
	if frame.Classify(p).Kind == frame.KindText {
		msgType = websocket.TextMessage
	}

	return c.conn.WriteMessage(msgType, p)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
