package moderation

import (
	"sync"
	"time"
)

// History is the per-user sliding window of recent messages backing the
// flood and duplicate detectors. Entries are kept process-global per user
// and filtered by guild at query time.
//
// A background sweep evicts entries older than the retention horizon. The
// sweep re-arms itself after each pass rather than ticking at a fixed rate,
// so a slow pass never stacks up behind the next one.
type History struct {
	mu      sync.RWMutex
	entries map[string][]HistoryEntry

	retention time.Duration
	interval  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHistory creates a history with the given retention horizon. The sweep
// interval equals the horizon (2x the larger detection window, set by the
// caller).
func NewHistory(retention time.Duration) *History {
	return &History{
		entries:   make(map[string][]HistoryEntry),
		retention: retention,
		interval:  retention,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Record appends an entry to the author's window.
func (h *History) Record(entry HistoryEntry) {
	h.mu.Lock()
	h.entries[entry.UserID] = append(h.entries[entry.UserID], entry)
	h.mu.Unlock()
}

// Query returns the user's entries in the given guild with a timestamp at or
// after since, in insertion order.
func (h *History) Query(userID, guildID string, since time.Time) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []HistoryEntry
	for _, entry := range h.entries[userID] {
		if entry.GuildID == guildID && !entry.Timestamp.Before(since) {
			out = append(out, entry)
		}
	}
	return out
}

// RemoveGuild drops and returns all of the user's entries for one guild.
// Used when a kicked spammer's recent messages are bulk-deleted.
func (h *History) RemoveGuild(userID, guildID string) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed, kept []HistoryEntry
	for _, entry := range h.entries[userID] {
		if entry.GuildID == guildID {
			removed = append(removed, entry)
		} else {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(h.entries, userID)
	} else {
		h.entries[userID] = kept
	}
	return removed
}

// Sweep evicts entries older than the retention horizon and returns how many
// were removed. Sweeping twice with no new entries is a no-op the second
// time.
func (h *History) Sweep(now time.Time) int {
	cutoff := now.Add(-h.retention)

	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for userID, list := range h.entries {
		kept := list[:0]
		for _, entry := range list {
			if entry.Timestamp.After(cutoff) {
				kept = append(kept, entry)
			}
		}
		removed += len(list) - len(kept)
		if len(kept) == 0 {
			delete(h.entries, userID)
		} else {
			h.entries[userID] = kept
		}
	}
	return removed
}

// Start launches the self-rescheduling sweep. Stop terminates it.
func (h *History) Start() {
	go func() {
		defer close(h.done)
		timer := time.NewTimer(h.interval)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				h.Sweep(time.Now())
				timer.Reset(h.interval)
			case <-h.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep and waits for it to exit.
func (h *History) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Len reports the total number of live entries, for tests and metrics.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, list := range h.entries {
		n += len(list)
	}
	return n
}
