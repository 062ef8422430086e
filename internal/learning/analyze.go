package learning

import (
	"strings"

	"github.com/spellproof/spellproof/internal/eventlog"
	"github.com/spellproof/spellproof/internal/extract"
	"github.com/spellproof/spellproof/internal/validate"
)

// Reason classifies the outcome of analysing one failed attempt.
type Reason string

const (
	// ReasonAllKnown: every transcript token already resolves through the
	// known layers; the failure was not caused by an unknown token.
	ReasonAllKnown Reason = "all_known"

	// ReasonSingleUnknown: exactly one unknown token aligned unambiguously
	// with exactly one expected letter — a learnable candidate.
	ReasonSingleUnknown Reason = "single_unknown_deduced"

	// ReasonMultipleUnknowns: two or more unknown tokens, or an alignment
	// that is ambiguous. No learning; guessing alignment creates noise.
	ReasonMultipleUnknowns Reason = "multiple_unknowns"

	// ReasonWordMismatch: the resolved letters contradict the expected
	// word. Rejected for safety.
	ReasonWordMismatch Reason = "word_mismatch"

	// ReasonAlreadyCorrect: the event was a correct answer; nothing to learn.
	ReasonAlreadyCorrect Reason = "already_correct"
)

// Candidate is a deduced (heard, intended) pair.
type Candidate struct {
	Heard    string
	Intended string
}

// Analysis is the per-event learning verdict.
type Analysis struct {
	CanLearn  bool
	Candidate *Candidate
	Reason    Reason
}

// Analyze aligns one failed attempt's transcript tokens against the expected
// word using the known mappings (per-user overlay plus the global table) and
// deduces a correction candidate when exactly one token is unresolved.
//
// Alignment is conservative: the resolved prefix and suffix around the
// unknown token must reproduce the expected word exactly, and the gap they
// leave must be exactly one letter. Any ambiguity means no learning.
func Analyze(ev eventlog.Event, known map[string]string) Analysis {
	if ev.WasCorrect {
		return Analysis{Reason: ReasonAlreadyCorrect}
	}

	tokens := extract.Tokenize(ev.RawTranscript)
	expected := validate.Normalize(ev.WordToSpell)

	// Resolve each token independently: user overlay, then global table,
	// then literal single letter. Multi-word phrases are deliberately not
	// consulted here — their tokens resolve individually, and phrase-level
	// alignment would be ambiguous.
	resolved := make([]string, len(tokens))
	unknownIdx := -1
	unknowns := 0
	for i, tok := range tokens {
		switch {
		case known[tok] != "":
			resolved[i] = known[tok]
		case globalLetters(tok) != "":
			resolved[i] = globalLetters(tok)
		case len(tok) == 1 && tok[0] >= 'a' && tok[0] <= 'z':
			resolved[i] = tok
		default:
			unknowns++
			unknownIdx = i
		}
	}

	switch {
	case unknowns == 0:
		return Analysis{Reason: ReasonAllKnown}
	case unknowns > 1:
		return Analysis{Reason: ReasonMultipleUnknowns}
	}

	prefix := strings.Join(resolved[:unknownIdx], "")
	suffix := strings.Join(resolved[unknownIdx+1:], "")

	if !strings.HasPrefix(expected, prefix) || !strings.HasSuffix(expected, suffix) {
		return Analysis{Reason: ReasonWordMismatch}
	}
	gap := len(expected) - len(prefix) - len(suffix)
	if gap != 1 {
		// The unknown token would have to stand for zero or several
		// letters; treat any length mismatch as unresolvable.
		return Analysis{Reason: ReasonMultipleUnknowns}
	}

	// The unknown token cannot carry a global mapping — it would have
	// resolved above. The collision guard against stale rows and table
	// growth lives at persistence time in Engine.Run.
	return Analysis{
		CanLearn:  true,
		Candidate: &Candidate{Heard: tokens[unknownIdx], Intended: expected[len(prefix) : len(prefix)+1]},
		Reason:    ReasonSingleUnknown,
	}
}

func globalLetters(tok string) string {
	letters, _ := extract.GlobalMapping(tok)
	return letters
}
