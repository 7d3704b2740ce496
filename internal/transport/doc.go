// Package transport provides duplex chunked byte links to the device. The
// physical serial link is out of scope; what this package dials is whatever
// bridge exposes that link on the network, over raw TCP or a websocket.
package transport
