package extract

import "github.com/spellproof/spellproof/internal/vocab"

// The global mapping layer is immutable by construction: it is assembled once
// at package init and only ever read afterwards. Per-user learned mappings are
// a separate overlay passed into Extract; the two layers are never merged into
// one mutable map, so a learned mapping can never shadow or overwrite a
// protected global entry.

// globalTokens maps a single heard token to the letter sequence it represents.
// Covers letter names, the NATO alphabet, and curated mis-hearings
// (homophones of letter names the recogniser produces instead).
var globalTokens = buildGlobalTokens()

// globalPhrases maps multi-word heard phrases to letter sequences. Matched
// before single tokens, longest phrase first.
var globalPhrases = map[string]string{
	"double you":  "w",
	"double u":    "w",
	"are you in":  "run",
}

// maxPhraseLen is the longest phrase length (in tokens) in globalPhrases.
const maxPhraseLen = 3

// misheard lists recogniser outputs that sound like a letter name but are
// transcribed as an ordinary English word.
var misheard = map[string]string{
	"aye":  "i",
	"be":   "b",
	"bea":  "b",
	"sea":  "c",
	"si":   "c",
	"dee":  "d",
	"eks":  "x",
	"ewe":  "u",
	"jee":  "g",
	"age":  "h",
	"owe":  "o",
	"que":  "q",
	"tea":  "t",
	"wye":  "y",
	"in":   "n",
	"and":  "n",
	"em":   "m",
	"arr":  "r",
}

func buildGlobalTokens() map[string]string {
	t := make(map[string]string, 26*3)

	for r, names := range vocab.LetterNames() {
		for _, name := range names {
			t[name] = string(r)
		}
	}
	for i, w := range vocab.NATOWords() {
		t[w] = string(rune('a' + i))
	}
	for heard, letter := range misheard {
		t[heard] = letter
	}
	return t
}

// GlobalMapping returns the letters a heard token maps to in the protected
// global layer, if any. Used by the learning engine's safety check: a learned
// candidate must never collide with an established global correction.
func GlobalMapping(heard string) (string, bool) {
	letters, ok := globalTokens[heard]
	return letters, ok
}
