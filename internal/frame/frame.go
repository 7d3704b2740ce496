package frame

import "strings"

// maxTextLen is the exclusive upper bound on a text command delivery. The
// device never sends commands this long, while audio chunks are always 256
// bytes, so length alone rules out most audio.
const maxTextLen = 100

// Kind identifies which variant of Frame is populated.
type Kind int

const (
	KindText Kind = iota
	KindAudio
)

// Frame is one classified link delivery. Exactly one of Text or Data is
// meaningful, selected by Kind.
type Frame struct {
	Kind Kind
	Text string // trimmed command text (KindText)
	Data []byte // raw audio bytes (KindAudio)
}

// Classify labels a raw delivery as a text command or binary audio. A chunk
// is text iff it is shorter than 100 bytes and every byte is printable ASCII,
// LF or CR; anything else is audio. An audio chunk whose bytes happen to all
// land in the printable range will misclassify; the protocol accepts this.
func Classify(chunk []byte) Frame {
	if !looksLikeText(chunk) {
		return Frame{Kind: KindAudio, Data: chunk}
	}

	// Tolerant decode: malformed sequences are replaced, never fatal.
	text := strings.TrimSpace(strings.ToValidUTF8(string(chunk), "�"))
	return Frame{Kind: KindText, Text: text}
}

// looksLikeText reports whether every byte is printable ASCII [32,126], LF
// or CR, and the chunk is below the text length cutoff.
func looksLikeText(chunk []byte) bool {
	if len(chunk) >= maxTextLen {
		return false
	}
	for _, b := range chunk {
		if (b < 32 || b > 126) && b != '\n' && b != '\r' {
			return false
		}
	}
	return true
}

// String returns a human-readable name for the frame kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}
