package command

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantType    Type
		wantPayload string
	}{
		{
			name:     "ping",
			text:     "PING",
			wantType: TypePing,
		},
		{
			name:     "pong",
			text:     "PONG",
			wantType: TypePong,
		},
		{
			name:     "audio ack",
			text:     "RECEIVED",
			wantType: TypeAudioAck,
		},
		{
			name:     "record start",
			text:     "REC_START",
			wantType: TypeRecordStart,
		},
		{
			name:     "record start with firmware suffix",
			text:     "REC_START_OK",
			wantType: TypeRecordStart,
		},
		{
			name:     "record stop",
			text:     "REC_STOP",
			wantType: TypeRecordStop,
		},
		{
			name:        "gps telemetry",
			text:        "GPS:12.5,45.25,10.0,3.2",
			wantType:    TypeGPS,
			wantPayload: "12.5,45.25,10.0,3.2",
		},
		{
			name:        "gps no fix",
			text:        "GPS:NO_FIX",
			wantType:    TypeGPS,
			wantPayload: "NO_FIX",
		},
		{
			name:     "playback started",
			text:     "INST_PLAY_START",
			wantType: TypePlaybackStarted,
		},
		{
			name:     "playback stopped",
			text:     "INST_PLAY_STOP",
			wantType: TypePlaybackStopped,
		},
		{
			name:     "unknown word",
			text:     "banana",
			wantType: TypeUnrecognized,
		},
		{
			name:     "ping with suffix is not ping",
			text:     "PINGX",
			wantType: TypeUnrecognized,
		},
		{
			name:     "lowercase is not recognized",
			text:     "ping",
			wantType: TypeUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Parse(tt.text)

			if cmd.Type != tt.wantType {
				t.Errorf("Parse(%q) type = %v, want %v", tt.text, cmd.Type, tt.wantType)
			}

			if cmd.Raw != tt.text {
				t.Errorf("Parse(%q) raw = %q, want original text", tt.text, cmd.Raw)
			}

			if cmd.Payload != tt.wantPayload {
				t.Errorf("Parse(%q) payload = %q, want %q", tt.text, cmd.Payload, tt.wantPayload)
			}
		})
	}
}

func TestParsePlayStartBeforePlayStop(t *testing.T) {
	// INST_PLAY_START and INST_PLAY_STOP share a prefix up to the final
	// token; make sure neither shadows the other.
	if cmd := Parse("INST_PLAY_START"); cmd.Type != TypePlaybackStarted {
		t.Errorf("Parse(INST_PLAY_START) type = %v, want %v", cmd.Type, TypePlaybackStarted)
	}
	if cmd := Parse("INST_PLAY_STOP"); cmd.Type != TypePlaybackStopped {
		t.Errorf("Parse(INST_PLAY_STOP) type = %v, want %v", cmd.Type, TypePlaybackStopped)
	}
}

func TestInstructionHeader(t *testing.T) {
	if got := InstructionHeader(96000); got != "INSTRUCTION:96000\n" {
		t.Errorf("InstructionHeader(96000) = %q, want %q", got, "INSTRUCTION:96000\n")
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypePing, "ping"},
		{TypePong, "pong"},
		{TypeRecordStart, "record_start"},
		{TypeRecordStop, "record_stop"},
		{TypeGPS, "gps"},
		{TypePlaybackStarted, "playback_started"},
		{TypePlaybackStopped, "playback_stopped"},
		{TypeAudioAck, "audio_ack"},
		{TypeUnrecognized, "unrecognized"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
