// Package extract turns a raw speech transcript into the canonical letter
// sequence the speaker spelled.
//
// Extraction is a pure function over two lookup layers: the caller-supplied
// per-user overlay (learned and manual corrections) and the immutable global
// table (letter names, NATO alphabet, known mis-hearings). Tokens no layer
// recognises are dropped from the letter output and reported separately —
// they are the learning engine's raw material.
//
// The package does no I/O and holds no mutable state; Extract is safe for
// unlimited concurrent calls.
package extract

import (
	"strings"
	"unicode"
)

// Extraction is the result of converting one transcript into letters.
type Extraction struct {
	// Letters is the canonical extracted letter sequence (lowercase, no
	// separators).
	Letters string

	// AppliedUser lists the heard tokens resolved through the per-user
	// overlay, in transcript order. Feed these back to the mapping store's
	// TimesApplied counter.
	AppliedUser []string

	// AppliedGlobal lists the heard tokens (or phrases) resolved through
	// the global table, in transcript order.
	AppliedGlobal []string

	// Unmapped lists tokens no layer could resolve. These are the
	// candidates the learning engine aligns against the expected word.
	Unmapped []string
}

// Extract converts transcript into a letter sequence using the per-user
// overlay first, then the global table, then literal single characters.
// userMappings maps a heard token to the letters it should produce; pass nil
// when the user has no learned mappings.
func Extract(transcript string, userMappings map[string]string) Extraction {
	tokens := Tokenize(transcript)

	var out Extraction
	var letters strings.Builder

	for i := 0; i < len(tokens); {
		tok := tokens[i]

		// Layer 1: per-user overlay.
		if mapped, ok := userMappings[tok]; ok {
			letters.WriteString(mapped)
			out.AppliedUser = append(out.AppliedUser, tok)
			i++
			continue
		}

		// Layer 2: global multi-word phrases, longest match first.
		if phrase, mapped, n := matchPhrase(tokens[i:]); n > 0 {
			letters.WriteString(mapped)
			out.AppliedGlobal = append(out.AppliedGlobal, phrase)
			i += n
			continue
		}

		// Layer 3: global single tokens.
		if mapped, ok := globalTokens[tok]; ok {
			letters.WriteString(mapped)
			out.AppliedGlobal = append(out.AppliedGlobal, tok)
			i++
			continue
		}

		// Layer 4: literal single characters ("c a t").
		if isSingleLetter(tok) {
			letters.WriteString(tok)
			i++
			continue
		}

		// No layer resolved the token: drop it and report it.
		out.Unmapped = append(out.Unmapped, tok)
		i++
	}

	out.Letters = letters.String()
	return out
}

// Tokenize lowercases the transcript, strips punctuation, and splits it into
// whitespace-separated tokens. Exposed because the learning engine must
// tokenise identically to the extractor.
func Tokenize(transcript string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			// Punctuation becomes a separator so "c.a.t" splits cleanly.
			return ' '
		}
	}, transcript)
	return strings.Fields(cleaned)
}

// matchPhrase tries to match a global multi-word phrase at the start of
// tokens. Returns the matched phrase, its letters, and the token count
// consumed (0 when nothing matched).
func matchPhrase(tokens []string) (phrase, letters string, n int) {
	limit := maxPhraseLen
	if len(tokens) < limit {
		limit = len(tokens)
	}
	for size := limit; size >= 2; size-- {
		candidate := strings.Join(tokens[:size], " ")
		if mapped, ok := globalPhrases[candidate]; ok {
			return candidate, mapped, size
		}
	}
	return "", "", 0
}

// isSingleLetter reports whether tok is exactly one a–z character.
func isSingleLetter(tok string) bool {
	return len(tok) == 1 && tok[0] >= 'a' && tok[0] <= 'z'
}
