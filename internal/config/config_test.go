package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"token": "tok",
		"guild_id": "g1",
		"spam": {
			"duplicate_message_threshold": 4,
			"duplicate_message_time": 30,
			"flood_message_threshold": 3,
			"flood_message_time": 4
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ModLogChannel != "mod-log" {
		t.Errorf("mod log channel default = %q", cfg.ModLogChannel)
	}
	if cfg.TrustedRoleName != "ok" {
		t.Errorf("trusted role default = %q", cfg.TrustedRoleName)
	}

	s := cfg.EngineSettings()
	if s.DupeWindow != 30*time.Second || s.FloodWindow != 4*time.Second {
		t.Errorf("windows = %v / %v", s.DupeWindow, s.FloodWindow)
	}
	if s.GuildID != "g1" {
		t.Errorf("guild id = %q", s.GuildID)
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	path := writeTemp(t, "config.json", `{"guild_id": "g1"}`)
	if _, err := Load(path); err == nil {
		t.Error("missing token must be rejected")
	}
}

func TestClassifierURLGatedByFlag(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"token": "tok",
		"guild_id": "g1",
		"spam": {"classifier_url": "http://scorer:8080/spam"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClassifierURL() != "" {
		t.Error("classifier URL must be empty while disabled")
	}

	cfg.Spam.ClassifierEnabled = true
	if cfg.ClassifierURL() != "http://scorer:8080/spam" {
		t.Errorf("classifier URL = %q", cfg.ClassifierURL())
	}
}

func TestLoadWordlists(t *testing.T) {
	path := writeTemp(t, "wordlists.yaml", `
invite_name_blocklist: ["badword"]
fuzzy:
  phrases:
    - word: gunbuddy
      distance: 2
  pairs:
    - first: gun
      first_distance: 1
      second: buddy
      second_distance: 2
`)
	lists, err := LoadWordlists(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lists.InviteNameBlocklist) != 1 || lists.InviteNameBlocklist[0] != "badword" {
		t.Errorf("blocklist = %v", lists.InviteNameBlocklist)
	}
	if len(lists.Fuzzy.Phrases) != 1 || lists.Fuzzy.Phrases[0].Distance != 2 {
		t.Errorf("phrases = %v", lists.Fuzzy.Phrases)
	}

	// Empty path falls back to the defaults.
	defaults, err := LoadWordlists("")
	if err != nil {
		t.Fatal(err)
	}
	if len(defaults.Fuzzy.Phrases) == 0 {
		t.Error("default wordlists must not be empty")
	}
}
