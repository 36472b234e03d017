package bot

import (
	"context"
	"fmt"

	"discord-moderation-bot/internal/moderation"
	"discord-moderation-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// DiscordPlatform adapts a discordgo session to the engine's Platform
// interface. Methods attempt each call once; retry policy lives in the
// session's REST layer.
type DiscordPlatform struct {
	session *discordgo.Session
}

func NewDiscordPlatform(s *discordgo.Session) *DiscordPlatform {
	return &DiscordPlatform{session: s}
}

var _ moderation.Platform = (*DiscordPlatform)(nil)

func (p *DiscordPlatform) DeleteMessage(ref moderation.MessageRef) error {
	return p.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID)
}

// BulkDeleteMessages groups refs by channel; Discord's bulk endpoint is
// per-channel and capped at 100 IDs.
func (p *DiscordPlatform) BulkDeleteMessages(refs []moderation.MessageRef) error {
	byChannel := make(map[string][]string)
	for _, ref := range refs {
		byChannel[ref.ChannelID] = append(byChannel[ref.ChannelID], ref.MessageID)
	}

	var firstErr error
	for channelID, ids := range byChannel {
		for len(ids) > 0 {
			batch := ids
			if len(batch) > 100 {
				batch = batch[:100]
			}
			ids = ids[len(batch):]

			var err error
			if len(batch) == 1 {
				err = p.session.ChannelMessageDelete(channelID, batch[0])
			} else {
				err = p.session.ChannelMessagesBulkDelete(channelID, batch)
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (p *DiscordPlatform) SendMessage(guildID, channelID string, content moderation.Content) (moderation.MessageRef, error) {
	send, err := utils.RenderContent(content)
	if err != nil {
		return moderation.MessageRef{}, fmt.Errorf("render message: %w", err)
	}
	msg, err := p.session.ChannelMessageSendComplex(channelID, send)
	if err != nil {
		return moderation.MessageRef{}, err
	}
	return moderation.MessageRef{GuildID: guildID, ChannelID: channelID, MessageID: msg.ID}, nil
}

func (p *DiscordPlatform) EditMessage(ref moderation.MessageRef, content moderation.Content) error {
	send, err := utils.RenderContent(content)
	if err != nil {
		return fmt.Errorf("render message: %w", err)
	}
	edit := discordgo.NewMessageEdit(ref.ChannelID, ref.MessageID)
	edit.SetContent(send.Content)
	edit.Embeds = &send.Embeds
	edit.Components = &send.Components
	_, err = p.session.ChannelMessageEditComplex(edit)
	return err
}

func (p *DiscordPlatform) SendDirectMessage(userID, text string) error {
	ch, err := p.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	_, err = p.session.ChannelMessageSend(ch.ID, text)
	return err
}

func (p *DiscordPlatform) React(ref moderation.MessageRef, emoji string) error {
	return p.session.MessageReactionAdd(ref.ChannelID, ref.MessageID, emoji)
}

func (p *DiscordPlatform) KickMember(guildID, userID, reason string) error {
	return p.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (p *DiscordPlatform) AddRole(guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (p *DiscordPlatform) FetchMember(guildID, userID string) (*moderation.Member, error) {
	member, err := p.session.GuildMember(guildID, userID)
	if err != nil {
		if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil &&
			restErr.Response.StatusCode == 404 {
			return nil, moderation.ErrMemberNotFound
		}
		return nil, err
	}
	username := ""
	if member.User != nil {
		username = member.User.Username
	}
	return &moderation.Member{
		UserID:   userID,
		Username: username,
		Roles:    member.Roles,
	}, nil
}

func (p *DiscordPlatform) ResolveInvite(ctx context.Context, code string) (string, error) {
	invite, err := p.session.Invite(code, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	if invite.Guild == nil {
		return "", nil
	}
	return invite.Guild.Name, nil
}
