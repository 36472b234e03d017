package utils

import (
	"bytes"
	"time"

	"discord-moderation-bot/internal/moderation"

	"github.com/bwmarrin/discordgo"
)

const defaultEmbedColor = 0x2f3136 // Dark embed color

// RenderContent converts engine output into a Discord message payload. A
// captcha flag attaches a freshly generated challenge image.
func RenderContent(c moderation.Content) (*discordgo.MessageSend, error) {
	send := &discordgo.MessageSend{Content: c.Text}

	if c.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{RenderEmbed(c.Embed)}
	}

	if len(c.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range c.Buttons {
			style := discordgo.SecondaryButton
			if b.Primary {
				style = discordgo.PrimaryButton
			}
			row.Components = append(row.Components, &discordgo.Button{
				Label:    b.Label,
				Style:    style,
				CustomID: b.ID,
			})
		}
		send.Components = []discordgo.MessageComponent{row}
	}

	if c.Captcha {
		captcha, err := GenerateCaptcha()
		if err != nil {
			return nil, err
		}
		send.Files = []*discordgo.File{{
			Name:        "verification.png",
			ContentType: "image/png",
			Reader:      bytes.NewReader(captcha.Image),
		}}
	}

	return send, nil
}

// RenderEmbed converts an engine embed into the wire shape.
func RenderEmbed(e *moderation.Embed) *discordgo.MessageEmbed {
	color := e.Color
	if color == 0 {
		color = defaultEmbedColor
	}

	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if e.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return embed
}
