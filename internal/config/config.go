package config

import (
	"fmt"
	"os"
	"time"

	"discord-moderation-bot/internal/moderation"
	"discord-moderation-bot/internal/redis"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config is the config.json shape.
type Config struct {
	Token   string `json:"token"`
	GuildID string `json:"guild_id"`

	// Resolved by name at startup.
	ModLogChannel   string `json:"mod_log_channel"`
	TrustedRoleName string `json:"trusted_role_name"`

	AdminRoles   []string `json:"admin_roles"`
	IgnoredRoles []string `json:"ignored_roles"`

	Spam SpamConfig `json:"spam"`

	// WordlistsFile points at the yaml keyword lists; empty uses built-in
	// defaults.
	WordlistsFile string `json:"wordlists_file"`

	MetricsAddr string `json:"metrics_addr"`

	Redis redis.Config `json:"redis"`
}

// SpamConfig mirrors the tunables of the rule engine. Times are seconds.
type SpamConfig struct {
	AllowedURLs []string `json:"allowed_urls"`
	BlockedURLs []string `json:"blocked_urls"`

	FloodMessageThreshold     int `json:"flood_message_threshold"`
	FloodMessageTime          int `json:"flood_message_time"`
	DuplicateMessageThreshold int `json:"duplicate_message_threshold"`
	DuplicateMessageTime      int `json:"duplicate_message_time"`

	MaxViolations int `json:"max_violations"`

	ClassifierEnabled bool   `json:"classifier_enabled"`
	ClassifierURL     string `json:"classifier_url"`

	TempExemptionMinutes int `json:"temp_exemption_minutes"`

	// TLDListURL overrides the IANA dump feeding the misleading-link rule.
	TLDListURL string `json:"tld_list_url"`
}

// Load reads and decodes config.json.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("config: token is required")
	}
	if cfg.GuildID == "" {
		return nil, fmt.Errorf("config: guild_id is required")
	}
	if cfg.ModLogChannel == "" {
		cfg.ModLogChannel = "mod-log"
	}
	if cfg.TrustedRoleName == "" {
		cfg.TrustedRoleName = "ok"
	}
	return &cfg, nil
}

// LoadWordlists reads the yaml keyword lists. An empty path returns the
// built-in defaults.
func LoadWordlists(path string) (moderation.Wordlists, error) {
	if path == "" {
		return moderation.DefaultWordlists(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return moderation.Wordlists{}, fmt.Errorf("read wordlists: %w", err)
	}
	var lists moderation.Wordlists
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return moderation.Wordlists{}, fmt.Errorf("parse wordlists: %w", err)
	}
	return lists, nil
}

// EngineSettings maps the config onto the engine's settings.
func (c *Config) EngineSettings() moderation.Settings {
	return moderation.Settings{
		GuildID:        c.GuildID,
		AdminRoles:     c.AdminRoles,
		IgnoredRoles:   c.IgnoredRoles,
		AllowedURLs:    c.Spam.AllowedURLs,
		BlockedURLs:    c.Spam.BlockedURLs,
		FloodThreshold: c.Spam.FloodMessageThreshold,
		FloodWindow:    time.Duration(c.Spam.FloodMessageTime) * time.Second,
		DupeThreshold:  c.Spam.DuplicateMessageThreshold,
		DupeWindow:     time.Duration(c.Spam.DuplicateMessageTime) * time.Second,
		MaxViolations:  c.Spam.MaxViolations,
		TempExemption:  time.Duration(c.Spam.TempExemptionMinutes) * time.Minute,
		TLDListURL:     c.Spam.TLDListURL,
	}
}

// ClassifierURL returns the scoring endpoint, or empty when the classifier
// is disabled (a disabled classifier is an abstaining one, never an error).
func (c *Config) ClassifierURL() string {
	if !c.Spam.ClassifierEnabled {
		return ""
	}
	return c.Spam.ClassifierURL
}
