package moderation

import (
	"context"
	"regexp"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`\b\w+\W*`)
	scrubPattern = regexp.MustCompile(`[,\-./?]`)
)

// tokenize splits cleaned text into lowercase tokens with punctuation and
// emoji stripped, preserving word order so adjacency checks work.
func tokenize(clean string) []string {
	raw := tokenPattern.FindAllString(clean+" ", -1)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.ToLower(w)
		w = scrubPattern.ReplaceAllString(w, "")
		w = stripAstral(w)
		words = append(words, strings.TrimSpace(w))
	}
	return words
}

// stripAstral drops emoji and other astral-plane runes.
func stripAstral(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x10000 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// checkFuzzyKeywords flags bait phrases by edit distance: single-token
// targets within their per-phrase budget, and two-token targets where both
// halves match and sit next to each other.
func (e *Engine) checkFuzzyKeywords(_ context.Context, msg *Message) (Result, error) {
	words := tokenize(msg.CleanContent)
	if len(words) == 0 {
		return Result{}, nil
	}

	matched := ""
	for _, phrase := range e.wordlists.Fuzzy.Phrases {
		for _, w := range words {
			if w != "" && levenshtein(w, phrase.Word) <= phrase.Distance {
				matched = phrase.Word
				break
			}
		}
		if matched != "" {
			break
		}
	}

	if matched == "" {
	pairs:
		for _, pair := range e.wordlists.Fuzzy.Pairs {
			for i := 1; i < len(words); i++ {
				if words[i] == "" || words[i-1] == "" {
					continue
				}
				if levenshtein(words[i], pair.Second) <= pair.SecondDistance &&
					levenshtein(words[i-1], pair.First) <= pair.FirstDistance {
					matched = pair.First + " " + pair.Second
					break pairs
				}
			}
		}
	}

	if matched == "" {
		return Result{}, nil
	}

	return Result{
		Triggered:   true,
		AuditReason: "bait phrase matched: " + matched,
		UserContent: &Content{
			Text: "Hey <@" + msg.AuthorID + ">, that request cannot be fulfilled here",
			Embed: &Embed{
				Title:       "Nobody here can do that",
				Color:       0xff0000,
				Description: "Your message matched a phrase our spam detector watches for. Nobody in this server can grant that request, and repeated attempts get removed.",
			},
		},
	}, nil
}
