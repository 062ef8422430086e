package gateway

import "github.com/spellproof/spellproof/pkg/provider/stt"

// Client control message types.
const (
	typeStart = "start"
	typeStop  = "stop"
)

// Server envelope types.
const (
	typeReady   = "ready"
	typeInterim = "interim"
	typeFinal   = "final"
	typeError   = "error"
)

// controlMessage is a JSON text frame sent by the client.
type controlMessage struct {
	Type string `json:"type"`

	// Language optionally overrides the server's default recognition
	// language for this session.
	Language string `json:"language,omitempty"`

	// SampleRate optionally overrides the default PCM sample rate in Hz.
	SampleRate int `json:"sampleRate,omitempty"`
}

// envelope is a JSON text frame sent to the client. The shape is part of the
// public protocol and must stay stable for downstream voice-input consumers.
type envelope struct {
	Type string `json:"type"`

	// Transcript carries the recognised text on interim and final envelopes.
	Transcript string `json:"transcript,omitempty"`

	// Stability is the provider's estimate that an interim transcript will
	// not change, in [0, 1]. Interim envelopes only.
	Stability float64 `json:"stability,omitempty"`

	// Confidence is the overall transcript confidence. Final envelopes only.
	Confidence float64 `json:"confidence,omitempty"`

	// Words carries per-word timings. Final envelopes only.
	Words []wordTiming `json:"words,omitempty"`

	// Message describes the failure on error envelopes.
	Message string `json:"message,omitempty"`
}

// wordTiming is one recognised word with offsets in fractional seconds
// relative to the start of the utterance.
type wordTiming struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence,omitempty"`
}

// interimEnvelope builds the envelope for a non-final transcript.
func interimEnvelope(t stt.Transcript) envelope {
	return envelope{
		Type:       typeInterim,
		Transcript: t.Text,
		Stability:  t.Stability,
	}
}

// finalEnvelope builds the envelope for a committed transcript segment,
// converting word offsets from durations to fractional seconds.
func finalEnvelope(t stt.Transcript) envelope {
	env := envelope{
		Type:       typeFinal,
		Transcript: t.Text,
		Confidence: t.Confidence,
	}
	for _, w := range t.Words {
		env.Words = append(env.Words, wordTiming{
			Word:       w.Word,
			StartTime:  w.Start.Seconds(),
			EndTime:    w.End.Seconds(),
			Confidence: w.Confidence,
		})
	}
	return env
}

// errorEnvelope builds an error envelope with the given message.
func errorEnvelope(msg string) envelope {
	return envelope{Type: typeError, Message: msg}
}
