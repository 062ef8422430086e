package vocab_test

import (
	"strings"
	"testing"

	"github.com/spellproof/spellproof/internal/vocab"
)

func TestSpellingKeywords_CoversAlphabet(t *testing.T) {
	t.Parallel()

	kws := vocab.SpellingKeywords()
	seen := make(map[string]float64, len(kws))
	for _, kw := range kws {
		seen[kw.Keyword] = kw.Boost
	}

	for r := 'a'; r <= 'z'; r++ {
		if _, ok := seen[string(r)]; !ok {
			t.Errorf("missing bare letter %q", string(r))
		}
	}
	for _, name := range []string{"ay", "bee", "oh", "zee", "zed"} {
		if _, ok := seen[name]; !ok {
			t.Errorf("missing letter name %q", name)
		}
	}
	for _, w := range []string{"alpha", "charlie", "zulu"} {
		if _, ok := seen[w]; !ok {
			t.Errorf("missing NATO word %q", w)
		}
	}
	if _, ok := seen["double you"]; !ok {
		t.Error(`missing phrase "double you"`)
	}
}

func TestLetterNames_AreSingleTokens(t *testing.T) {
	t.Parallel()

	// The extract layer matches letter names against individual transcript
	// tokens; a name containing whitespace could never match.
	for letter, names := range vocab.LetterNames() {
		for _, name := range names {
			if strings.ContainsAny(name, " \t") {
				t.Errorf("letterNames[%q] contains multi-word entry %q", letter, name)
			}
		}
	}
}

func TestSpellingKeywords_ConfusedLettersBoostedHarder(t *testing.T) {
	t.Parallel()

	kws := vocab.SpellingKeywords()
	boost := make(map[string]float64, len(kws))
	for _, kw := range kws {
		boost[kw.Keyword] = kw.Boost
	}

	// "bee" (confused group b/p/d) must outrank a plain name like "jay".
	if boost["bee"] <= boost["jay"] {
		t.Errorf("boost[bee]=%v not greater than boost[jay]=%v", boost["bee"], boost["jay"])
	}
}

func TestNATOWords_InLetterOrder(t *testing.T) {
	t.Parallel()

	words := vocab.NATOWords()
	if len(words) != 26 {
		t.Fatalf("len(NATOWords()) = %d, want 26", len(words))
	}
	if words[0] != "alpha" || words[25] != "zulu" {
		t.Errorf("NATOWords() order wrong: first=%q last=%q", words[0], words[25])
	}
}
