package validate

import (
	"time"

	"github.com/spellproof/spellproof/pkg/provider/stt"
)

// Inter-word gap thresholds for the timing classifier. Spelled letters show
// gaps of roughly 200–400ms between words; connected speech stays under
// ~100ms.
const (
	// spellingGap is the average gap above which an utterance is classified
	// as spelled regardless of word count.
	spellingGap = 150 * time.Millisecond

	// fastSpellingGap is the lower bound accepted when the word count also
	// matches the expected letter count (a fast but genuine speller).
	fastSpellingGap = 80 * time.Millisecond
)

// AudioTiming is the classification of one final utterance derived from
// provider word timestamps. It is the preferred spelled-out signal; lexical
// detection is only a fallback.
type AudioTiming struct {
	// LooksLikeSpelling is the classifier verdict.
	LooksLikeSpelling bool

	// WordCount is the number of timed words in the utterance.
	WordCount int

	// AvgGap is the mean silence between consecutive words.
	AvgGap time.Duration
}

// ClassifyTiming derives an AudioTiming from the word timings of a final
// transcript. expectedLetters is the length of the word the player was asked
// to spell; single-letter words are valid input.
//
// A single timed word can never look like spelling — with one word there are
// no inter-word gaps — except in the trivial case of a one-letter word.
func ClassifyTiming(words []stt.WordDetail, expectedLetters int) AudioTiming {
	t := AudioTiming{WordCount: len(words)}

	if len(words) == 0 {
		return t
	}
	if len(words) == 1 {
		// "a" spelled out is one utterance of one letter.
		t.LooksLikeSpelling = expectedLetters == 1
		return t
	}

	var total time.Duration
	for i := 1; i < len(words); i++ {
		gap := words[i].Start - words[i-1].End
		if gap > 0 {
			total += gap
		}
	}
	t.AvgGap = total / time.Duration(len(words)-1)

	switch {
	case t.AvgGap >= spellingGap:
		t.LooksLikeSpelling = true
	case t.AvgGap >= fastSpellingGap && len(words) >= expectedLetters:
		t.LooksLikeSpelling = true
	}
	return t
}
