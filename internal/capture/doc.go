// Package capture owns the audio recording lifecycle: chunk validation,
// in-memory queuing, the periodic flush to an append-capable byte sink, and
// per-session statistics. At most one session records at a time.
package capture
