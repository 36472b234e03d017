package moderation

import (
	"context"
	"strings"
)

// checkSensitiveTopics puts messages touching the configured sensitive
// keywords (crypto terms by default) behind the robot check.
func (e *Engine) checkSensitiveTopics(_ context.Context, msg *Message) (Result, error) {
	content := strings.ToLower(msg.Content)
	hit := ""
	for _, word := range e.wordlists.SensitiveKeywords {
		if strings.Contains(content, word) {
			hit = strings.TrimSpace(word)
			break
		}
	}
	if hit == "" {
		return Result{}, nil
	}

	return Result{
		Triggered:   true,
		AuditReason: "sensitive keyword: " + hit,
		UserContent: robotCheckContent(msg.AuthorID,
			"We require users to verify that they are human before they are allowed to send messages that include certain keywords."),
	}, nil
}

// checkSupportRequests redirects off-topic account/support pleas: a distress
// word plus a request word, with no exempt word, earns the canned redirect.
func (e *Engine) checkSupportRequests(_ context.Context, msg *Message) (Result, error) {
	words := tokenize(msg.CleanContent)

	contains := func(list []string) bool {
		for _, target := range list {
			for _, w := range words {
				if w == target {
					return true
				}
			}
		}
		return false
	}

	if !contains(e.wordlists.Support.DistressWords) ||
		!contains(e.wordlists.Support.RequestWords) ||
		contains(e.wordlists.Support.ExemptWords) {
		return Result{}, nil
	}

	return Result{
		Triggered:   true,
		AuditReason: "off-topic support request",
		UserContent: &Content{
			Text: "Hey <@" + msg.AuthorID + ">, there is no account or game support here",
			Embed: &Embed{
				Title:       "There is no account support here",
				Color:       0xff0000,
				Description: "This server is for developer discussion only. Nobody here can help with bans, suspensions, or compromised accounts; please contact official player support instead.",
			},
		},
	}, nil
}

// robotCheckContent is the shared "prove you're human" prompt. The renderer
// attaches a captcha image; reacting with a thumbs-up clears the hold.
func robotCheckContent(authorID, reason string) *Content {
	return &Content{
		Text:    "Hey <@" + authorID + ">, if you are a human, react with :+1: to this message",
		Captcha: true,
		Embed: &Embed{
			Title:       "Robot Check",
			Color:       0xffcc00,
			Description: reason + " If you are a human, react with :+1: to this message. If you are a bot, please go spam somewhere else. 👍",
		},
	}
}
