package command

import (
	"fmt"
	"strings"
)

// Type enumerates the known device commands.
type Type int

const (
	TypeUnrecognized Type = iota
	TypePing
	TypePong
	TypeRecordStart
	TypeRecordStop
	TypeGPS
	TypePlaybackStarted
	TypePlaybackStopped
	TypeAudioAck
)

// Inbound vocabulary. PING/PONG/RECEIVED match by exact equality, the rest
// by prefix (firmware appends variable suffixes to some commands).
const (
	wordPing          = "PING"
	wordPong          = "PONG"
	wordReceived      = "RECEIVED"
	prefixRecordStart = "REC_START"
	prefixRecordStop  = "REC_STOP"
	prefixGPS         = "GPS:"
	prefixPlayStart   = "INST_PLAY_START"
	prefixPlayStop    = "INST_PLAY_STOP"
)

// Outbound vocabulary, newline-terminated as the device expects.
const (
	WirePing       = "PING\n"
	WirePong       = "PONG\n"
	WireStopRecord = "STOP_REC\n"
)

// InstructionHeader builds the length announcement that precedes a raw PCM
// instruction payload of exactly byteLen bytes.
func InstructionHeader(byteLen int) string {
	return fmt.Sprintf("INSTRUCTION:%d\n", byteLen)
}

// Command is one parsed device command.
type Command struct {
	Type    Type
	Raw     string // original command text
	Payload string // text after the prefix (TypeGPS only)
}

// Parse converts command text into a typed command. Exact matches are
// checked before prefix families so PONG never shadows a prefix rule.
// Unmatched input yields TypeUnrecognized and is never an error.
func Parse(text string) Command {
	switch text {
	case wordPing:
		return Command{Type: TypePing, Raw: text}
	case wordPong:
		return Command{Type: TypePong, Raw: text}
	case wordReceived:
		return Command{Type: TypeAudioAck, Raw: text}
	}

	switch {
	case strings.HasPrefix(text, prefixRecordStart):
		return Command{Type: TypeRecordStart, Raw: text}
	case strings.HasPrefix(text, prefixRecordStop):
		return Command{Type: TypeRecordStop, Raw: text}
	case strings.HasPrefix(text, prefixGPS):
		return Command{Type: TypeGPS, Raw: text, Payload: strings.TrimPrefix(text, prefixGPS)}
	case strings.HasPrefix(text, prefixPlayStart):
		return Command{Type: TypePlaybackStarted, Raw: text}
	case strings.HasPrefix(text, prefixPlayStop):
		return Command{Type: TypePlaybackStopped, Raw: text}
	}

	return Command{Type: TypeUnrecognized, Raw: text}
}

// String returns a stable lowercase name for the command type, suitable for
// log attributes and metric labels.
func (t Type) String() string {
	switch t {
	case TypePing:
		return "ping"
	case TypePong:
		return "pong"
	case TypeRecordStart:
		return "record_start"
	case TypeRecordStop:
		return "record_stop"
	case TypeGPS:
		return "gps"
	case TypePlaybackStarted:
		return "playback_started"
	case TypePlaybackStopped:
		return "playback_stopped"
	case TypeAudioAck:
		return "audio_ack"
	default:
		return "unrecognized"
	}
}
