package moderation

import "context"

// checkDuplicates counts the author's identical messages in this guild
// within the duplicate window. The current message counts toward the
// threshold, so a threshold of 4 fires on the 4th copy.
func (e *Engine) checkDuplicates(_ context.Context, msg *Message) (Result, error) {
	since := msg.Timestamp.Add(-e.settings.DupeWindow)
	dupes := 1
	for _, entry := range e.history.Query(msg.AuthorID, msg.GuildID, since) {
		if entry.Content == msg.Content {
			dupes++
		}
	}
	if dupes < e.settings.DupeThreshold {
		return Result{}, nil
	}
	return Result{
		Triggered:   true,
		AuditReason: "duplicate message spam",
		UserContent: &Content{Text: "Hey <@" + msg.AuthorID + ">, stop spamming!"},
	}, nil
}

// checkFlood counts the author's messages of any content in this guild
// within the flood window, current message included.
func (e *Engine) checkFlood(_ context.Context, msg *Message) (Result, error) {
	since := msg.Timestamp.Add(-e.settings.FloodWindow)
	count := 1 + len(e.history.Query(msg.AuthorID, msg.GuildID, since))
	if count < e.settings.FloodThreshold {
		return Result{}, nil
	}
	return Result{
		Triggered:   true,
		AuditReason: "message flood",
		UserContent: &Content{Text: "Hey <@" + msg.AuthorID + ">, stop spamming!"},
	}, nil
}
