package stt

import "time"

// Transcript represents a speech-to-text result from an STT provider.
// Both interim (partial) and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a committed (final) or interim result.
	IsFinal bool

	// Stability estimates how unlikely an interim result is to change
	// (0.0–1.0). Zero for providers that do not report stability and for
	// final results, where it is meaningless.
	Stability float64

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence on interim results.
	Confidence float64

	// Words contains per-word timing detail. Only populated on final
	// results; the inter-word gaps are the primary spelled-out signal.
	Words []WordDetail
}

// WordDetail holds per-word metadata on final transcripts. Start and End are
// offsets from the beginning of the utterance.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// KeywordBoost represents a vocabulary entry to boost in STT recognition.
// Used to bias the recogniser toward letter names and spelling-style speech.
type KeywordBoost struct {
	// Keyword is the text to boost (e.g., "bee", "charlie").
	Keyword string

	// Boost is the intensity of the boost (provider-specific scale).
	Boost float64
}
