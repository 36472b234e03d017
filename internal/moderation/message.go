package moderation

import "time"

// Message is the platform-agnostic view of an inbound chat message. The bot
// layer fills it from the gateway event; the engine never mutates it.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string

	AuthorID       string
	AuthorUsername string
	AuthorIsBot    bool
	// Role IDs of the author at the time the message was received. May be
	// empty if the gateway did not include member data; the engine falls
	// back to FetchMember in that case.
	AuthorRoles []string

	// Raw content as typed, and content with mentions resolved to plain text.
	Content      string
	CleanContent string

	MentionsEveryone bool
	Timestamp        time.Time
}

// Ref returns the message's platform reference.
func (m *Message) Ref() MessageRef {
	return MessageRef{GuildID: m.GuildID, ChannelID: m.ChannelID, MessageID: m.ID}
}

// MessageRef identifies a message on the platform.
type MessageRef struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// Member is the subset of platform member data the engine needs.
type Member struct {
	UserID   string
	Username string
	Roles    []string
}

// HasAnyRole reports whether the member holds any of the given role IDs.
func (m *Member) HasAnyRole(roleIDs []string) bool {
	for _, want := range roleIDs {
		for _, have := range m.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Reaction is an emoji reaction on a message.
type Reaction struct {
	MessageRef MessageRef
	UserID     string
	UserIsBot  bool
	Emoji      string
}

// HistoryEntry is one recorded message in the sliding-window history.
// Entries are immutable once recorded and leave the window only by eviction.
type HistoryEntry struct {
	UserID    string
	GuildID   string
	Ref       MessageRef
	Content   string
	Timestamp time.Time
}
