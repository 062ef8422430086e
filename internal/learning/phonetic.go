package learning

import (
	"github.com/antzucaro/matchr"

	"github.com/spellproof/spellproof/internal/vocab"
)

// plausibilityThreshold is the minimum Jaro-Winkler similarity between a
// heard token and one of the letter's spoken forms for a candidate that has
// no Double Metaphone overlap to be accepted.
const plausibilityThreshold = 0.7

// spokenForms returns every rendering of a letter the system knows how to
// hear: the bare letter, its letter-name transcriptions, and its NATO word.
func spokenForms(letter rune) []string {
	forms := append([]string{string(letter)}, vocab.LetterNames()[letter]...)
	if idx := int(letter - 'a'); idx >= 0 && idx < len(vocab.NATOWords()) {
		forms = append(forms, vocab.NATOWords()[idx])
	}
	return forms
}

// metaphoneCodes returns the non-empty Double Metaphone codes for a token.
func metaphoneCodes(token string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(token)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// plausible reports whether heard could credibly be a mis-hearing of the
// intended letter: it must share a Double Metaphone code with one of the
// letter's spoken forms, or sit above the Jaro-Winkler threshold against one.
// Alignment alone is not trusted — a junk token that happens to line up with
// the same gap twice must not enter the mapping table.
func plausible(cand Candidate) bool {
	if len(cand.Intended) != 1 || cand.Intended[0] < 'a' || cand.Intended[0] > 'z' {
		return false
	}

	heardCodes := metaphoneCodes(cand.Heard)
	for _, form := range spokenForms(rune(cand.Intended[0])) {
		if cand.Heard == form {
			return true
		}
		for code := range metaphoneCodes(form) {
			if _, ok := heardCodes[code]; ok {
				return true
			}
		}
		if matchr.JaroWinkler(cand.Heard, form, false) >= plausibilityThreshold {
			return true
		}
	}
	return false
}
