// Package link owns the device transport: dialing, the serialized inbound
// read loop, the non-blocking outbound write pump, liveness pings, and
// finalization of any active capture when the link goes away.
package link
