// Package vocab builds the recognition boost vocabulary for spelling sessions.
//
// The vocabulary biases the STT provider toward spelling-style speech: bare
// letters, the spoken names of letters ("ay", "bee", …), the NATO phonetic
// alphabet, and extra weight on letter groups the recogniser commonly
// confuses (b/p/d, m/n, f/s).
package vocab

import "github.com/spellproof/spellproof/pkg/provider/stt"

const (
	letterBoost   = 2.0
	nameBoost     = 3.0
	natoBoost     = 2.0
	confusedBoost = 4.0
)

// letterNames maps each letter to the usual transcriptions of its spoken
// name. Every entry is a single token: the extract layer matches these
// against whitespace-split transcript words, so multi-word renderings such
// as "double you" live in its phrase table instead.
var letterNames = map[rune][]string{
	'a': {"ay"},
	'b': {"bee"},
	'c': {"see", "cee"},
	'd': {"dee"},
	'e': {"ee"},
	'f': {"ef", "eff"},
	'g': {"gee"},
	'h': {"aitch"},
	'i': {"eye"},
	'j': {"jay"},
	'k': {"kay"},
	'l': {"el", "ell"},
	'm': {"em"},
	'n': {"en"},
	'o': {"oh"},
	'p': {"pee"},
	'q': {"cue", "queue"},
	'r': {"are", "ar"},
	's': {"ess", "es"},
	't': {"tee"},
	'u': {"you", "yu"},
	'v': {"vee"},
	'w': {"doubleyou"},
	'x': {"ex"},
	'y': {"why"},
	'z': {"zee", "zed"},
}

// natoWords is the NATO phonetic alphabet in letter order.
var natoWords = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
	"hotel", "india", "juliett", "kilo", "lima", "mike", "november",
	"oscar", "papa", "quebec", "romeo", "sierra", "tango", "uniform",
	"victor", "whiskey", "xray", "yankee", "zulu",
}

// confusedGroups lists letters whose spoken names the recogniser most often
// swaps; these receive the strongest boost.
var confusedGroups = [][]rune{
	{'b', 'p', 'd'},
	{'m', 'n'},
	{'f', 's'},
	{'c', 'z'},
}

// SpellingKeywords returns the full boost vocabulary for a spelling session.
// The result is freshly allocated on every call; callers may modify it.
func SpellingKeywords() []stt.KeywordBoost {
	confused := make(map[rune]bool)
	for _, group := range confusedGroups {
		for _, r := range group {
			confused[r] = true
		}
	}

	var kws []stt.KeywordBoost
	for r := 'a'; r <= 'z'; r++ {
		kws = append(kws, stt.KeywordBoost{Keyword: string(r), Boost: letterBoost})
		boost := nameBoost
		if confused[r] {
			boost = confusedBoost
		}
		for _, name := range letterNames[r] {
			kws = append(kws, stt.KeywordBoost{Keyword: name, Boost: boost})
		}
	}
	for _, w := range natoWords {
		kws = append(kws, stt.KeywordBoost{Keyword: w, Boost: natoBoost})
	}
	// Letter names transcribed as multi-word phrases can't live in the
	// single-token table above.
	kws = append(kws, stt.KeywordBoost{Keyword: "double you", Boost: nameBoost})
	return kws
}

// LetterNames exposes the letter-name table for the extractor's global
// mapping layer. The returned map is shared; callers must not modify it.
func LetterNames() map[rune][]string { return letterNames }

// NATOWords exposes the NATO alphabet in letter order (index 0 is "alpha").
// The returned slice is shared; callers must not modify it.
func NATOWords() []string { return natoWords }
