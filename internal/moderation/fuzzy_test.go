package moderation

import (
	"context"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"gunbuddy", "gunbuddy", 0},
		{"gunbody", "gunbuddy", 2},
		{"flaw", "lawn", 2},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestTokenizeScrubsPunctuationAndEmoji(t *testing.T) {
	words := tokenize("Gun, please? 😀 now")
	want := []string{"gun", "please", "now"}

	var nonEmpty []string
	for _, w := range words {
		if w != "" {
			nonEmpty = append(nonEmpty, w)
		}
	}
	if len(nonEmpty) != len(want) {
		t.Fatalf("got tokens %v, want %v", nonEmpty, want)
	}
	for i := range want {
		if nonEmpty[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, nonEmpty[i], want[i])
		}
	}
}

func TestFuzzyKeywordSinglePhrase(t *testing.T) {
	e := newTestEngine(newFakePlatform(), nil)

	for _, content := range []string{
		"can anyone give me a gunbuddy",
		"GUNBUDDY pls",
		"looking for a gunbody", // 2 edits away
	} {
		msg := testMessage("m1", "user-1", content)
		res, err := e.checkFuzzyKeywords(context.Background(), msg)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", content, err)
		}
		if !res.Triggered {
			t.Errorf("%q must trigger", content)
		}
	}
}

func TestFuzzyKeywordAdjacentPair(t *testing.T) {
	e := newTestEngine(newFakePlatform(), nil)

	res, _ := e.checkFuzzyKeywords(context.Background(),
		testMessage("m1", "user-1", "anyone got a gun buddy to spare"))
	if !res.Triggered {
		t.Error("adjacent pair must trigger")
	}

	// Pair halves separated by another word must not match.
	res, _ = e.checkFuzzyKeywords(context.Background(),
		testMessage("m2", "user-1", "the gun my buddy has"))
	if res.Triggered {
		t.Error("non-adjacent halves must not trigger")
	}
}

func TestFuzzyKeywordNoFalsePositives(t *testing.T) {
	e := newTestEngine(newFakePlatform(), nil)

	for _, content := range []string{
		"",
		"the gun range is open",
		"my buddy and I play daily",
		"completely unrelated chatter",
	} {
		res, _ := e.checkFuzzyKeywords(context.Background(), testMessage("m1", "user-1", content))
		if res.Triggered {
			t.Errorf("%q must not trigger", content)
		}
	}
}

func BenchmarkTokenize(b *testing.B) {
	text := "Hey there, can anyone hook me up with a Gun-Buddy? Asking for a friend 😀"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tokenize(text)
	}
}

func BenchmarkLevenshtein(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		levenshtein("gunbodies", "gunbuddies")
	}
}
