package moderation

import (
	"fmt"
	"testing"
	"time"
)

func entryAt(userID, guildID, content string, ts time.Time) HistoryEntry {
	return HistoryEntry{
		UserID:    userID,
		GuildID:   guildID,
		Ref:       MessageRef{GuildID: guildID, ChannelID: "c", MessageID: content},
		Content:   content,
		Timestamp: ts,
	}
}

func TestHistoryQueryFiltersByGuildAndTime(t *testing.T) {
	h := NewHistory(time.Minute)
	now := time.Now()

	h.Record(entryAt("u1", "g1", "a", now.Add(-90*time.Second)))
	h.Record(entryAt("u1", "g1", "b", now.Add(-10*time.Second)))
	h.Record(entryAt("u1", "g2", "c", now.Add(-5*time.Second)))
	h.Record(entryAt("u2", "g1", "d", now))

	got := h.Query("u1", "g1", now.Add(-30*time.Second))
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Content != "b" {
		t.Errorf("expected entry b, got %s", got[0].Content)
	}

	// Boundary timestamp is included.
	exact := h.Query("u1", "g1", now.Add(-10*time.Second))
	if len(exact) != 1 {
		t.Errorf("entry exactly at the window edge must match, got %d", len(exact))
	}
}

func TestHistoryRemoveGuild(t *testing.T) {
	h := NewHistory(time.Minute)
	now := time.Now()

	h.Record(entryAt("u1", "g1", "a", now))
	h.Record(entryAt("u1", "g1", "b", now))
	h.Record(entryAt("u1", "g2", "c", now))

	removed := h.RemoveGuild("u1", "g1")
	if len(removed) != 2 {
		t.Errorf("expected 2 removed entries, got %d", len(removed))
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 entry to survive, got %d", h.Len())
	}
	if got := h.Query("u1", "g2", now.Add(-time.Second)); len(got) != 1 {
		t.Errorf("other-guild entry must survive, got %d", len(got))
	}
}

func TestHistorySweep(t *testing.T) {
	h := NewHistory(time.Minute)
	now := time.Now()

	for i := 0; i < 5; i++ {
		h.Record(entryAt("u1", "g1", fmt.Sprintf("old-%d", i), now.Add(-2*time.Minute)))
	}
	h.Record(entryAt("u1", "g1", "fresh", now))
	h.Record(entryAt("u2", "g1", "stale", now.Add(-time.Hour)))

	if removed := h.Sweep(now); removed != 6 {
		t.Errorf("expected 6 evictions, got %d", removed)
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 surviving entry, got %d", h.Len())
	}

	// Second pass with no new entries removes nothing.
	if removed := h.Sweep(now); removed != 0 {
		t.Errorf("repeat sweep must be a no-op, removed %d", removed)
	}
}

func TestHistoryStartStop(t *testing.T) {
	h := NewHistory(10 * time.Millisecond)
	h.Record(entryAt("u1", "g1", "a", time.Now().Add(-time.Second)))

	h.Start()
	time.Sleep(50 * time.Millisecond)
	h.Stop()

	if h.Len() != 0 {
		t.Errorf("background sweep should have evicted the stale entry, %d left", h.Len())
	}

	// Stop twice must not panic.
	h.Stop()
}
