package bot

import (
	"context"
	"strings"

	"discord-moderation-bot/internal/moderation"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// MessageCreate feeds inbound guild messages to the engine. Each message is
// processed on its own goroutine; per-author ordering is the engine's
// problem (shard locks), not the gateway reader's.
func (b *Bot) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	// Channels the author can't post in carry system messages about them,
	// not messages from them (AutoMod alerts quote the blocked content).
	// Those must never count against the quoted author.
	if !b.authorCanPost(m.Author.ID, m.ChannelID) {
		return
	}

	var roles []string
	if m.Member != nil {
		roles = m.Member.Roles
	}

	msg := &moderation.Message{
		ID:               m.ID,
		GuildID:          m.GuildID,
		ChannelID:        m.ChannelID,
		AuthorID:         m.Author.ID,
		AuthorUsername:   m.Author.Username,
		AuthorIsBot:      m.Author.Bot,
		AuthorRoles:      roles,
		Content:          m.Content,
		CleanContent:     m.ContentWithMentionsReplaced(),
		MentionsEveryone: m.MentionEveryone,
		Timestamp:        m.Timestamp,
	}

	go b.Engine.ProcessMessage(context.Background(), msg)
}

// authorCanPost reports whether the user can send messages in the channel.
// A failed permission lookup lets the message through; moderation must not
// go dark because one resolution failed.
func (b *Bot) authorCanPost(userID, channelID string) bool {
	perms, err := b.channelPerms(userID, channelID)
	if err != nil {
		b.Logger.Warn("channel permission lookup failed",
			zap.String("user_id", userID),
			zap.String("channel_id", channelID),
			zap.Error(err))
		return true
	}
	return perms&discordgo.PermissionSendMessages != 0
}

// MessageReactionAdd forwards reactions so held prompts can be confirmed.
func (b *Bot) MessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == s.State.User.ID {
		return
	}

	reaction := moderation.Reaction{
		MessageRef: moderation.MessageRef{
			GuildID:   r.GuildID,
			ChannelID: r.ChannelID,
			MessageID: r.MessageID,
		},
		UserID: r.UserID,
		Emoji:  r.Emoji.Name,
	}
	if r.Member != nil && r.Member.User != nil {
		reaction.UserIsBot = r.Member.User.Bot
	}

	go b.Engine.HandleReaction(context.Background(), reaction)
}

// InteractionCreate routes reviewer button presses on classifier reports.
func (b *Bot) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	var kind moderation.ReviewerActionKind
	var messageID string
	switch {
	case strings.HasPrefix(customID, moderation.ButtonNotSpam):
		kind = moderation.ReviewerNotSpam
		messageID = strings.TrimPrefix(customID, moderation.ButtonNotSpam)
	case strings.HasPrefix(customID, moderation.ButtonConfirmSpam):
		kind = moderation.ReviewerConfirmSpam
		messageID = strings.TrimPrefix(customID, moderation.ButtonConfirmSpam)
	case strings.HasPrefix(customID, moderation.ButtonTempExempt):
		kind = moderation.ReviewerTempExempt
		messageID = strings.TrimPrefix(customID, moderation.ButtonTempExempt)
	default:
		return
	}

	reviewerID := ""
	if i.Member != nil && i.Member.User != nil {
		reviewerID = i.Member.User.ID
	}

	reply := b.Engine.HandleReviewerAction(context.Background(), moderation.ReviewerAction{
		Kind:       kind,
		MessageID:  messageID,
		GuildID:    i.GuildID,
		ReviewerID: reviewerID,
	})

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.Logger.Warn("failed to respond to reviewer interaction", zap.Error(err))
	}
}
