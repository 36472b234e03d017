package moderation

import (
	"context"
	"errors"
)

// ErrMemberNotFound is returned by Platform.FetchMember when the user has
// left the guild. Actions against such users are skipped, not retried.
var ErrMemberNotFound = errors.New("member not found")

// Content is a platform-agnostic message payload. The bot layer decides how
// to render it (plain text, embed, attached captcha image, buttons).
type Content struct {
	Text    string
	Embed   *Embed
	Buttons []Button
	// Captcha asks the renderer to attach a generated challenge image.
	Captcha bool
}

// Embed is an abstract rich-content block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Thumbnail   string
	Footer      string
}

// Button is an abstract reviewer affordance attached to a message.
type Button struct {
	ID      string
	Label   string
	Primary bool
}

// Platform is the narrow interface to the chat platform. The engine reacts
// to pushed events and issues these commands; it never opens its own
// listener. Every call is attempted exactly once.
type Platform interface {
	DeleteMessage(ref MessageRef) error
	BulkDeleteMessages(refs []MessageRef) error
	SendMessage(guildID, channelID string, content Content) (MessageRef, error)
	EditMessage(ref MessageRef, content Content) error
	SendDirectMessage(userID, text string) error
	React(ref MessageRef, emoji string) error
	KickMember(guildID, userID, reason string) error
	AddRole(guildID, userID, roleID string) error
	FetchMember(guildID, userID string) (*Member, error)
	ResolveInvite(ctx context.Context, code string) (guildName string, err error)
}
