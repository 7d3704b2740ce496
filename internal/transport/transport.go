package transport

import (
	"context"
	"fmt"
	"net/url"
)

// Conn is one established duplex link. ReadChunk returns exactly one wire
// delivery per call; chunk boundaries are whatever the underlying bridge
// delivered, which is what the classifier expects.
type Conn interface {
	ReadChunk() ([]byte, error)
	WriteChunk(p []byte) error
	Close() error
}

// Dial connects to target and returns the matching Conn implementation.
// Supported schemes: tcp://host:port, ws:// and wss:// URLs. A single
// attempt; the caller decides whether a failure is fatal.
func Dial(ctx context.Context, target string, readBufferSize int) (Conn, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target %s: %w", target, err)
	}

	switch u.Scheme {
	case "tcp":
		return dialTCP(ctx, u.Host, readBufferSize)
	case "ws", "wss":
		return dialWS(ctx, target)
	default:
		return nil, fmt.Errorf("unsupported transport scheme %q in target %s", u.Scheme, target)
	}
}
