package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// fakePlatform records every platform call for assertions.
type fakePlatform struct {
	mu sync.Mutex

	deleted     []MessageRef
	bulkDeleted [][]MessageRef
	sent        []sentMessage
	edited      []sentMessage
	dms         []sentDM
	reactions   []sentReaction
	kicks       []kickCall
	rolesAdded  []roleCall

	members     map[string]*Member
	inviteNames map[string]string

	sendErr error
	nextID  int
}

type sentMessage struct {
	GuildID   string
	ChannelID string
	Content   Content
	Ref       MessageRef
}

type sentDM struct {
	UserID string
	Text   string
}

type sentReaction struct {
	Ref   MessageRef
	Emoji string
}

type kickCall struct {
	GuildID string
	UserID  string
	Reason  string
}

type roleCall struct {
	GuildID string
	UserID  string
	RoleID  string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		members:     make(map[string]*Member),
		inviteNames: make(map[string]string),
	}
}

func (p *fakePlatform) DeleteMessage(ref MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, ref)
	return nil
}

func (p *fakePlatform) BulkDeleteMessages(refs []MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bulkDeleted = append(p.bulkDeleted, refs)
	return nil
}

func (p *fakePlatform) SendMessage(guildID, channelID string, content Content) (MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return MessageRef{}, p.sendErr
	}
	p.nextID++
	ref := MessageRef{
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: fmt.Sprintf("sent-%d", p.nextID),
	}
	p.sent = append(p.sent, sentMessage{GuildID: guildID, ChannelID: channelID, Content: content, Ref: ref})
	return ref, nil
}

func (p *fakePlatform) EditMessage(ref MessageRef, content Content) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edited = append(p.edited, sentMessage{
		GuildID:   ref.GuildID,
		ChannelID: ref.ChannelID,
		Content:   content,
		Ref:       ref,
	})
	return nil
}

func (p *fakePlatform) SendDirectMessage(userID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dms = append(p.dms, sentDM{UserID: userID, Text: text})
	return nil
}

func (p *fakePlatform) React(ref MessageRef, emoji string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactions = append(p.reactions, sentReaction{Ref: ref, Emoji: emoji})
	return nil
}

func (p *fakePlatform) KickMember(guildID, userID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kicks = append(p.kicks, kickCall{GuildID: guildID, UserID: userID, Reason: reason})
	return nil
}

func (p *fakePlatform) AddRole(guildID, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rolesAdded = append(p.rolesAdded, roleCall{GuildID: guildID, UserID: userID, RoleID: roleID})
	return nil
}

func (p *fakePlatform) FetchMember(guildID, userID string) (*Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.members[userID]; ok {
		return m, nil
	}
	return nil, ErrMemberNotFound
}

func (p *fakePlatform) ResolveInvite(_ context.Context, code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name, ok := p.inviteNames[code]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown invite %q", code)
}

func (p *fakePlatform) deleteCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.deleted)
}

func (p *fakePlatform) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func (p *fakePlatform) kickCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.kicks)
}

func (p *fakePlatform) lastSent() sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent[len(p.sent)-1]
}

const (
	testGuild   = "guild-1"
	testChannel = "channel-1"
	testModLog  = "modlog-1"
	testRole    = "trusted-role-1"
)

func testSettings() Settings {
	return Settings{
		GuildID:        testGuild,
		AdminRoles:     []string{"admin-role"},
		IgnoredRoles:   []string{"ignored-role"},
		AllowedURLs:    []string{"example.com", "docs.example.org"},
		BlockedURLs:    []string{"scam.example.net"},
		FloodThreshold: 3,
		FloodWindow:    4 * time.Second,
		DupeThreshold:  4,
		DupeWindow:     30 * time.Second,
		MaxViolations:  2,
	}
}

func newTestEngine(platform *fakePlatform, classifier *Classifier) *Engine {
	if classifier == nil {
		classifier = NewClassifier("", 0)
	}
	e := NewEngine(testSettings(), Wordlists{}, platform, classifier, nil,
		NewMetrics(nil), zap.NewNop())
	e.SetGuildInfo(testRole, testModLog)
	return e
}

func testMessage(id, authorID, content string) *Message {
	return &Message{
		ID:             id,
		GuildID:        testGuild,
		ChannelID:      testChannel,
		AuthorID:       authorID,
		AuthorUsername: "tester",
		Content:        content,
		CleanContent:   content,
		Timestamp:      time.Now(),
	}
}
