// Package frame classifies raw link deliveries as text commands or binary
// audio. The device multiplexes both over one duplex byte stream with no
// framing header, so classification is a byte-range heuristic.
package frame
