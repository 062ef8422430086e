// Package validate decides whether a submitted spelling answer is correct and,
// for voice answers, whether the speaker actually spelled the word out
// letter-by-letter rather than just saying it.
//
// Validation is contract-based: every input, including an empty answer,
// yields a structured Result. Nothing in this package performs I/O or holds
// shared state; all functions are safe under unbounded concurrency.
package validate

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/spellproof/spellproof/internal/extract"
)

// InputMethod distinguishes how an answer was submitted.
type InputMethod string

const (
	MethodVoice    InputMethod = "voice"
	MethodKeyboard InputMethod = "keyboard"
)

// Rejection reason codes recorded on incorrect answers. The anti-cheat code is
// internal only: players see an ordinary incorrect answer.
const (
	ReasonNotSpelledOut = "not_spelled_out"
	ReasonEmptyAnswer   = "empty_answer"
	ReasonWrongLetters  = "wrong_letters"
)

// Request carries one submitted answer into Validate.
type Request struct {
	// Answer is the raw submitted answer: the final transcript for voice,
	// the typed string for keyboard.
	Answer string

	// Word is the correct word the player was asked to spell.
	Word string

	// Method is how the answer was submitted.
	Method InputMethod

	// UserMappings is the per-user phonetic overlay consulted during letter
	// extraction. Ignored in keyboard mode. May be nil.
	UserMappings map[string]string

	// Timing, when non-nil, carries the provider-timestamp classification
	// of the utterance. When nil, voice mode falls back to lexical
	// spelled-out detection on the transcript.
	Timing *AudioTiming
}

// Result is the outcome of validating one answer.
type Result struct {
	// IsCorrect reports whether the answer counts as correct.
	IsCorrect bool

	// WasSpelledOut reports the anti-cheat verdict for voice answers.
	// Nil in keyboard mode, where the gate does not apply.
	WasSpelledOut *bool

	// RejectionReason is the internal reason code on incorrect answers,
	// empty when correct.
	RejectionReason string

	// Extraction is the letter extraction performed in voice mode. Zero in
	// keyboard mode. Exposed so callers can log extracted letters and
	// record applied user mappings.
	Extraction extract.Extraction
}

// Validate decides correctness of one answer.
//
// Keyboard mode compares normalised strings for equality; timing is ignored
// entirely. Voice mode first applies the spelled-out gate — an otherwise
// letter-perfect answer that was not spelled out is rejected — then compares
// the extracted letters against the word.
func Validate(req Request) Result {
	if req.Method == MethodKeyboard {
		return validateKeyboard(req)
	}
	return validateVoice(req)
}

func validateKeyboard(req Request) Result {
	answer := Normalize(req.Answer)
	if answer == "" {
		return Result{RejectionReason: ReasonEmptyAnswer}
	}
	if answer != Normalize(req.Word) {
		return Result{RejectionReason: ReasonWrongLetters}
	}
	return Result{IsCorrect: true}
}

func validateVoice(req Request) Result {
	if strings.TrimSpace(req.Answer) == "" {
		spelled := false
		return Result{WasSpelledOut: &spelled, RejectionReason: ReasonEmptyAnswer}
	}

	ext := extract.Extract(req.Answer, req.UserMappings)

	var spelled bool
	if req.Timing != nil {
		spelled = req.Timing.LooksLikeSpelling
	} else {
		// Lexical fallback over the overlay-aware extraction: the user's
		// own learned corrections count as spelling evidence too.
		spelled = isSpelledOutExtraction(req.Answer, req.Word, ext)
	}

	res := Result{WasSpelledOut: &spelled, Extraction: ext}

	// Absolute gate: a spoken-not-spelled answer never counts, even when
	// the letters happen to match.
	if !spelled {
		res.RejectionReason = ReasonNotSpelledOut
		return res
	}

	// Extracted letters must match; a provider-assembled transcript that
	// already equals the word also counts (the letters were recombined).
	word := Normalize(req.Word)
	if Normalize(ext.Letters) != word && Normalize(req.Answer) != word {
		res.RejectionReason = ReasonWrongLetters
		return res
	}
	res.IsCorrect = true
	return res
}

// IsSpelledOut is the lexical fallback for the anti-cheat gate, used when no
// provider timing is available. A transcript counts as spelled out when it is
// spaced single letters ("C A T"), spoken letter names ("see ay tee"), NATO
// words ("charlie alpha tango"), any mix of those, or a transcript the
// provider already assembled into the exact correct word.
func IsSpelledOut(transcript, word string) bool {
	return isSpelledOutExtraction(transcript, word, extract.Extract(transcript, nil))
}

// isSpelledOutExtraction is the lexical gate over an already-computed
// extraction, so the per-user overlay participates when the caller has one.
func isSpelledOutExtraction(transcript, word string, ext extract.Extraction) bool {
	tokens := extract.Tokenize(transcript)
	if len(tokens) == 0 {
		return false
	}

	// Provider assembled the spelled letters back into the word itself.
	if len(tokens) == 1 && Normalize(tokens[0]) == Normalize(word) {
		return true
	}

	// Every token must resolve through a spelling layer — letter names,
	// NATO words, phrases, user corrections, or literal single letters.
	// One stray ordinary word means the utterance was speech, not spelling.
	return len(ext.Unmapped) == 0 && ext.Letters != ""
}

// Normalize lowercases s, strips punctuation and whitespace, and collapses
// inter-letter spacing: Normalize("  C A T.  ") == "cat". It is idempotent.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity returns the normalised edit-distance similarity of a and b in
// [0, 1]: identical strings score 1 (two empty strings included, by
// convention), fully disjoint strings score 0. Diagnostics only — correctness
// is always decided by exact comparison, never by similarity.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(longest)
}
