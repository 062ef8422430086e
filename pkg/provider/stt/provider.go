// Package stt defines the Provider interface for streaming Speech-to-Text
// backends used by the spelling verifier.
//
// An STT provider wraps a real-time transcription service and exposes a uniform
// streaming interface. The central abstraction is SessionHandle: once opened, a
// session accepts raw PCM audio frames and emits two streams of Transcript
// values — low-latency interims for live UI feedback and authoritative finals
// carrying the word-level timings the anti-cheat gate depends on.
//
// Implementations must be safe for concurrent use. Audio input and transcript
// output channels are goroutine-safe by construction.
package stt

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by SendAudio once a session has stopped
// accepting audio. Callers are expected to drop the frame and log, not fail.
var ErrSessionClosed = errors.New("stt: session is closed")

// StreamConfig describes the audio format and recognition hints for a new STT
// session. All fields must be compatible with what the underlying provider
// supports.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. 16000 is the STT-optimised
	// default for browser microphone capture downsampled to mono.
	SampleRate int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider use its default.
	Language string

	// Keywords is the boost vocabulary biasing recognition toward
	// spelling-style speech: single letters, spoken letter names, and
	// commonly confused letter groups. See vocab.SpellingKeywords.
	Keywords []KeywordBoost
}

// SessionHandle represents an open STT streaming session. It is an interface so
// that test code can provide mock implementations without a live provider
// connection.
//
// Callers must call Close when the session is no longer needed; failing to do
// so may leak goroutines and network connections inside the provider. All
// methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes to the provider.
	// Returns ErrSessionClosed once the session no longer accepts audio;
	// no call sequence can make it panic.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting low-latency interim
	// Transcript values. Interims may be superseded and carry no word
	// timings. The channel is closed when the session ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel emitting committed Transcript
	// values with per-word timestamps. The channel is closed when the
	// session ends.
	Finals() <-chan Transcript

	// Active reports whether the session currently accepts audio writes.
	Active() bool

	// Close half-closes the stream, flushes pending audio, and releases all
	// resources. After Close returns, Partials and Finals will be closed.
	// Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any streaming STT backend.
//
// Implementations must be safe for concurrent use; multiple sessions may be
// open simultaneously (one per recording player).
type Provider interface {
	// StartStream opens a new streaming transcription session. The returned
	// SessionHandle is ready to accept audio immediately. The caller owns
	// the handle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
