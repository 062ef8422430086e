package validate_test

import (
	"testing"
	"time"

	"github.com/spellproof/spellproof/internal/validate"
	"github.com/spellproof/spellproof/pkg/provider/stt"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"  C A T.  ", "cat"},
		{"HELLO, WORLD!", "helloworld"},
		{"c-a-t", "cat"},
		{"", ""},
		{"   ", ""},
		{"Cat", "cat"},
	}
	for _, tc := range cases {
		if got := validate.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
		// Idempotence.
		if got := validate.Normalize(validate.Normalize(tc.in)); got != tc.want {
			t.Errorf("Normalize not idempotent for %q: got %q", tc.in, got)
		}
	}
}

func TestValidate_Keyboard(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		answer  string
		word    string
		correct bool
	}{
		{"exact", "cat", "cat", true},
		{"case and spacing", "  C A T ", "cat", true},
		{"punctuation", "c-a-t!", "cat", true},
		{"wrong word", "dog", "cat", false},
		{"empty", "", "cat", false},
		{"whitespace only", "   ", "cat", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := validate.Validate(validate.Request{
				Answer: tc.answer,
				Word:   tc.word,
				Method: validate.MethodKeyboard,
				// Timing must be ignored entirely in keyboard mode.
				Timing: &validate.AudioTiming{LooksLikeSpelling: false},
			})
			if res.IsCorrect != tc.correct {
				t.Errorf("IsCorrect = %v, want %v", res.IsCorrect, tc.correct)
			}
			if res.WasSpelledOut != nil {
				t.Errorf("WasSpelledOut = %v, want nil in keyboard mode", *res.WasSpelledOut)
			}
		})
	}
}

func TestValidate_Voice_TimingGateIsAbsolute(t *testing.T) {
	t.Parallel()

	// The transcript extracts to exactly the right letters, but timing says
	// the word was spoken, not spelled. The gate must reject it.
	res := validate.Validate(validate.Request{
		Answer: "see ay tee",
		Word:   "cat",
		Method: validate.MethodVoice,
		Timing: &validate.AudioTiming{LooksLikeSpelling: false},
	})
	if res.IsCorrect {
		t.Error("IsCorrect = true, want false when timing rejects spelling")
	}
	if res.WasSpelledOut == nil || *res.WasSpelledOut {
		t.Error("WasSpelledOut should be false")
	}
	if res.RejectionReason != validate.ReasonNotSpelledOut {
		t.Errorf("RejectionReason = %q, want %q", res.RejectionReason, validate.ReasonNotSpelledOut)
	}
}

func TestValidate_Voice_TimingAcceptedAndLettersMatch(t *testing.T) {
	t.Parallel()

	res := validate.Validate(validate.Request{
		Answer: "see ay tee",
		Word:   "cat",
		Method: validate.MethodVoice,
		Timing: &validate.AudioTiming{LooksLikeSpelling: true},
	})
	if !res.IsCorrect {
		t.Errorf("IsCorrect = false (reason %q), want true", res.RejectionReason)
	}
	if res.Extraction.Letters != "cat" {
		t.Errorf("Extraction.Letters = %q, want %q", res.Extraction.Letters, "cat")
	}
}

func TestValidate_Voice_LexicalFallback(t *testing.T) {
	t.Parallel()

	// No timing hints: lexical detection decides the gate.
	res := validate.Validate(validate.Request{
		Answer: "charlie alpha tango",
		Word:   "cat",
		Method: validate.MethodVoice,
	})
	if !res.IsCorrect {
		t.Errorf("NATO spelling rejected: reason %q", res.RejectionReason)
	}

	res = validate.Validate(validate.Request{
		Answer: "cat",
		Word:   "cat",
		Method: validate.MethodVoice,
	})
	if !res.IsCorrect {
		t.Errorf("provider-assembled word rejected: reason %q", res.RejectionReason)
	}

	res = validate.Validate(validate.Request{
		Answer: "catastrophe",
		Word:   "cat",
		Method: validate.MethodVoice,
	})
	if res.IsCorrect {
		t.Error("spoken word accepted, want rejection")
	}
	if res.RejectionReason != validate.ReasonNotSpelledOut {
		t.Errorf("RejectionReason = %q, want %q", res.RejectionReason, validate.ReasonNotSpelledOut)
	}
}

func TestValidate_Voice_UserMappingsApplied(t *testing.T) {
	t.Parallel()

	res := validate.Validate(validate.Request{
		Answer:       "tee ohs",
		Word:         "to",
		Method:       validate.MethodVoice,
		UserMappings: map[string]string{"ohs": "o"},
		Timing:       &validate.AudioTiming{LooksLikeSpelling: true},
	})
	if !res.IsCorrect {
		t.Errorf("IsCorrect = false (reason %q), want true with ohs→o mapping", res.RejectionReason)
	}
}

func TestValidate_Voice_UserMappingCountsAsSpellingEvidence(t *testing.T) {
	t.Parallel()

	// Without timing hints the lexical gate must accept tokens resolved by
	// the user's own overlay, or learned corrections could never validate.
	res := validate.Validate(validate.Request{
		Answer:       "tee ohs",
		Word:         "to",
		Method:       validate.MethodVoice,
		UserMappings: map[string]string{"ohs": "o"},
	})
	if res.WasSpelledOut == nil || !*res.WasSpelledOut {
		t.Fatal("WasSpelledOut = false, want true with overlay token")
	}
	if !res.IsCorrect {
		t.Errorf("IsCorrect = false (reason %q), want true", res.RejectionReason)
	}
}

func TestValidate_Voice_EmptyAnswer(t *testing.T) {
	t.Parallel()

	res := validate.Validate(validate.Request{
		Answer: "   ",
		Word:   "cat",
		Method: validate.MethodVoice,
	})
	if res.IsCorrect {
		t.Error("empty answer accepted")
	}
	if res.RejectionReason != validate.ReasonEmptyAnswer {
		t.Errorf("RejectionReason = %q, want %q", res.RejectionReason, validate.ReasonEmptyAnswer)
	}
}

func TestIsSpelledOut(t *testing.T) {
	t.Parallel()

	cases := []struct {
		transcript, word string
		want             bool
	}{
		{"C A T", "cat", true},
		{"see ay tee", "cat", true},
		{"charlie alpha tango", "cat", true},
		{"cat", "cat", true}, // provider assembled the word
		{"dog", "cat", false},
		{"category", "cat", false},
		{"", "cat", false},
		{"a", "a", true}, // single-letter word
	}
	for _, tc := range cases {
		if got := validate.IsSpelledOut(tc.transcript, tc.word); got != tc.want {
			t.Errorf("IsSpelledOut(%q, %q) = %v, want %v", tc.transcript, tc.word, got, tc.want)
		}
	}
}

func TestClassifyTiming(t *testing.T) {
	t.Parallel()

	// Helper to build evenly spaced words.
	mkWords := func(n int, gap time.Duration) []stt.WordDetail {
		words := make([]stt.WordDetail, n)
		var cursor time.Duration
		for i := range words {
			words[i] = stt.WordDetail{Word: "x", Start: cursor, End: cursor + 200*time.Millisecond}
			cursor += 200*time.Millisecond + gap
		}
		return words
	}

	// Three words, 300ms gaps: clearly spelled.
	at := validate.ClassifyTiming(mkWords(3, 300*time.Millisecond), 3)
	if !at.LooksLikeSpelling {
		t.Errorf("300ms gaps: LooksLikeSpelling = false, want true (avg %v)", at.AvgGap)
	}

	// One word, no gaps: spoken.
	at = validate.ClassifyTiming(mkWords(1, 0), 3)
	if at.LooksLikeSpelling {
		t.Error("single word: LooksLikeSpelling = true, want false")
	}

	// One word for a one-letter target: valid spelling.
	at = validate.ClassifyTiming(mkWords(1, 0), 1)
	if !at.LooksLikeSpelling {
		t.Error("single word, single-letter target: LooksLikeSpelling = false, want true")
	}

	// Several words but connected speech (20ms gaps): spoken phrase.
	at = validate.ClassifyTiming(mkWords(4, 20*time.Millisecond), 10)
	if at.LooksLikeSpelling {
		t.Errorf("20ms gaps: LooksLikeSpelling = true, want false (avg %v)", at.AvgGap)
	}

	// Fast speller: 100ms gaps but word count matches letter count.
	at = validate.ClassifyTiming(mkWords(3, 100*time.Millisecond), 3)
	if !at.LooksLikeSpelling {
		t.Errorf("fast speller: LooksLikeSpelling = false, want true (avg %v)", at.AvgGap)
	}

	// No words at all.
	at = validate.ClassifyTiming(nil, 3)
	if at.LooksLikeSpelling || at.WordCount != 0 {
		t.Errorf("empty words: %+v, want zero classification", at)
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "a", "cat", "spelling"} {
		if got := validate.Similarity(s, s); got != 1 {
			t.Errorf("Similarity(%q, %q) = %v, want 1", s, s, got)
		}
	}
	if got := validate.Similarity("abc", "xyz"); got != 0 {
		t.Errorf("Similarity(abc, xyz) = %v, want 0", got)
	}
	if got := validate.Similarity("cat", "cut"); got <= 0 || got >= 1 {
		t.Errorf("Similarity(cat, cut) = %v, want in (0, 1)", got)
	}
}
