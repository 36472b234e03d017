package bot

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discord-moderation-bot/internal/config"
	"discord-moderation-bot/internal/moderation"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Bot owns the gateway session and forwards events into the moderation
// engine. The engine never talks to Discord directly; everything goes
// through the Platform adapter.
type Bot struct {
	Session *discordgo.Session
	Engine  *moderation.Engine
	Logger  *zap.Logger

	cfg       *config.Config
	startTime time.Time

	// channelPerms resolves a member's permissions in a channel; swappable
	// so the posting gate can be tested without a live session.
	channelPerms func(userID, channelID string) (int64, error)
}

// New builds the session and registers handlers. The engine is constructed
// by the caller with this bot's Platform adapter.
func New(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	// Keep-alive pooled transport for the REST API; moderation actions are
	// latency sensitive (a kick racing a spam burst).
	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       120 * time.Second,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
	}
	s.Client = &http.Client{Transport: tr, Timeout: 15 * time.Second}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites |
		discordgo.IntentsMessageContent

	// Minimal state tracking; member data arrives with messages and the
	// engine fetches on demand otherwise.
	s.StateEnabled = true
	s.State.MaxMessageCount = 0
	s.State.TrackPresences = false
	s.State.TrackVoice = false

	s.ShouldReconnectOnError = true
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 3

	b := &Bot{
		Session:   s,
		Logger:    logger,
		cfg:       cfg,
		startTime: time.Now(),
	}
	b.channelPerms = func(userID, channelID string) (int64, error) {
		return s.UserChannelPermissions(userID, channelID)
	}

	s.AddHandler(b.Ready)
	s.AddHandler(b.MessageCreate)
	s.AddHandler(b.MessageReactionAdd)
	s.AddHandler(b.InteractionCreate)

	return b, nil
}

// SetEngine installs the moderation engine. Must be called before Start.
func (b *Bot) SetEngine(e *moderation.Engine) { b.Engine = e }

// Start opens the gateway connection, brings the engine up, and blocks
// until SIGINT/SIGTERM.
func (b *Bot) Start() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("gateway connection failed: %w", err)
	}
	b.Logger.Info("connected to gateway")

	if b.Session.State.User == nil {
		u, err := b.Session.User("@me")
		if err != nil {
			return fmt.Errorf("failed to get bot user: %w", err)
		}
		b.Session.State.User = u
	}
	b.Logger.Info("logged in",
		zap.String("username", b.Session.State.User.Username),
		zap.String("user_id", b.Session.State.User.ID))

	b.Engine.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := b.Engine.LoadTLDs(ctx); err != nil {
		b.Logger.Warn("tld list unavailable, misleading-link matching disabled", zap.Error(err))
	}
	cancel()

	if b.cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			b.Logger.Info("metrics server listening", zap.String("addr", b.cfg.MetricsAddr))
			if err := http.ListenAndServe(b.cfg.MetricsAddr, mux); err != nil {
				b.Logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	return b.Close()
}

// Close shuts the engine and session down.
func (b *Bot) Close() error {
	b.Logger.Info("shutting down")
	b.Engine.Stop()
	err := b.Session.Close()
	b.Logger.Sync()
	return err
}

// Ready resolves the configured names (trusted role, moderator log channel)
// to IDs and hands them to the engine. Runs again on reconnect, which also
// picks up renames.
func (b *Bot) Ready(s *discordgo.Session, _ *discordgo.Ready) {
	guildID := b.cfg.GuildID

	var trustedRoleID string
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		b.Logger.Error("failed to list guild roles", zap.Error(err))
	} else {
		for _, r := range roles {
			if r.Name == b.cfg.TrustedRoleName {
				trustedRoleID = r.ID
				break
			}
		}
		if trustedRoleID == "" {
			b.Logger.Warn("trusted role not found, clearance will not grant it",
				zap.String("role_name", b.cfg.TrustedRoleName))
		}
	}

	var modLogChannelID string
	channels, err := s.GuildChannels(guildID)
	if err != nil {
		b.Logger.Error("failed to list guild channels", zap.Error(err))
	} else {
		for _, ch := range channels {
			if ch.Name == b.cfg.ModLogChannel && ch.Type == discordgo.ChannelTypeGuildText {
				modLogChannelID = ch.ID
				break
			}
		}
		if modLogChannelID == "" {
			b.Logger.Warn("moderator log channel not found, reports will be dropped",
				zap.String("channel_name", b.cfg.ModLogChannel))
		}
	}

	b.Engine.SetGuildInfo(trustedRoleID, modLogChannelID)
	b.Logger.Info("guild info resolved",
		zap.String("trusted_role_id", trustedRoleID),
		zap.String("mod_log_channel_id", modLogChannelID))
}
