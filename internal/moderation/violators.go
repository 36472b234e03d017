package moderation

import "sync"

// Violator is the single-slot confirmation record for one flagged author.
// At most one exists per author: flagging an already-flagged author
// increments Violations instead of creating a second record. The record
// lives until the author is cleared by a confirmation or kicked.
type Violator struct {
	AuthorID       string
	AuthorUsername string

	// The content of the message that was removed, reposted verbatim if a
	// human confirms it was not spam.
	MessageContent string

	// PromptRef points at the confirmation prompt (or classifier removal
	// notice) posted in the channel. Nil if posting it failed.
	PromptRef *MessageRef

	// OrigMessageID is set for classifier-flagged records so reviewer
	// buttons can find them. ReportRef points at the reviewable mod-log
	// report, edited in place once a reviewer decides.
	OrigMessageID string
	ReportRef     *MessageRef

	Violations int
}

// violatorStore holds the live records. The mutex guards the map and the
// finder-visible record fields; flag/clear/escalate sequences additionally
// hold the author's shard lock (userLocks) so whole sequences exclude each
// other, and field writes go through update.
type violatorStore struct {
	mu       sync.Mutex
	byAuthor map[string]*Violator
}

func newViolatorStore() *violatorStore {
	return &violatorStore{byAuthor: make(map[string]*Violator)}
}

func (s *violatorStore) get(authorID string) *Violator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byAuthor[authorID]
}

func (s *violatorStore) put(v *Violator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAuthor[v.AuthorID] = v
}

func (s *violatorStore) remove(authorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byAuthor, authorID)
}

// update runs fn on the author's record under the store lock. Record fields
// read by the prompt/message finders must only be written through here, so
// those reads never race with a flag or removal on another event stream.
// Returns false when no record exists.
func (s *violatorStore) update(authorID string, fn func(*Violator)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.byAuthor[authorID]
	if v == nil {
		return false
	}
	fn(v)
	return true
}

// findByPrompt locates the record whose confirmation prompt is the given
// message. Linear scan; the set is tiny.
func (s *violatorStore) findByPrompt(messageID string) *Violator {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.byAuthor {
		if v.PromptRef != nil && v.PromptRef.MessageID == messageID {
			return v
		}
	}
	return nil
}

// findByOrigMessage locates the record created for the given removed
// message.
func (s *violatorStore) findByOrigMessage(messageID string) *Violator {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.byAuthor {
		if v.OrigMessageID == messageID {
			return v
		}
	}
	return nil
}

func (s *violatorStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byAuthor)
}

// userLocks provides per-user mutual exclusion between the message pipeline,
// the reaction stream, and reviewer actions, so an escalation and a
// clearance for the same author can never interleave. Sharded by a simple
// multiplicative hash to bound memory.
type userLocks struct {
	shards [64]sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	var hash uint64
	for i := 0; i < len(userID); i++ {
		hash = hash*31 + uint64(userID[i])
	}
	mu := &l.shards[hash%64]
	mu.Lock()
	return mu.Unlock
}
