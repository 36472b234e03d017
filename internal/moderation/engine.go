package moderation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Settings is the engine's external configuration. Zero values fall back to
// the defaults the community has run with for years.
type Settings struct {
	GuildID string

	// AdminRoles exempt their holders from every rule and authorize
	// reviewer confirmations. IgnoredRoles don't count toward the
	// "has real roles" exemption check.
	AdminRoles   []string
	IgnoredRoles []string

	AllowedURLs []string
	BlockedURLs []string

	FloodThreshold int
	FloodWindow    time.Duration
	DupeThreshold  int
	DupeWindow     time.Duration

	// MaxViolations is the count beyond which a still-unconfirmed author
	// is kicked.
	MaxViolations int

	TempExemption time.Duration

	TLDListURL string
}

func (s Settings) withDefaults() Settings {
	if s.FloodThreshold == 0 {
		s.FloodThreshold = 3
	}
	if s.FloodWindow == 0 {
		s.FloodWindow = 4 * time.Second
	}
	if s.DupeThreshold == 0 {
		s.DupeThreshold = 4
	}
	if s.DupeWindow == 0 {
		s.DupeWindow = 30 * time.Second
	}
	if s.MaxViolations == 0 {
		s.MaxViolations = 2
	}
	if s.TempExemption == 0 {
		s.TempExemption = 15 * time.Minute
	}
	if s.TLDListURL == "" {
		s.TLDListURL = "https://data.iana.org/TLD/tlds-alpha-by-domain.txt"
	}
	return s
}

// LookupCache caches slow external lookups (invite resolutions, the TLD
// list). Satisfied by internal/cache; nil disables caching.
type LookupCache interface {
	Get(ctx context.Context, key string, fetch func() (interface{}, error)) (interface{}, error)
}

// Engine is the moderation core: it owns the rule pipeline, the sliding
// message history, the violator records, and the temporary exemptions. All
// mutation of per-author state goes through per-user shard locks so the
// message, reaction, and reviewer event streams can run on independent
// goroutines.
type Engine struct {
	settings   Settings
	wordlists  Wordlists
	logger     *zap.Logger
	metrics    *Metrics
	platform   Platform
	classifier *Classifier
	lookup     LookupCache

	history   *History
	violators *violatorStore
	locks     userLocks
	rules     []Rule

	httpClient *http.Client

	infoMu        sync.RWMutex
	trustedRoleID string
	modLogChannel string
	tlds          []string

	exemptMu   sync.Mutex
	exemptions map[string]time.Time
}

// NewEngine wires the moderation core. classifier must be non-nil (use a
// disabled one when unconfigured); lookup may be nil.
func NewEngine(settings Settings, wordlists Wordlists, platform Platform,
	classifier *Classifier, lookup LookupCache, metrics *Metrics, logger *zap.Logger) *Engine {

	settings = settings.withDefaults()

	retention := settings.FloodWindow
	if settings.DupeWindow > retention {
		retention = settings.DupeWindow
	}

	e := &Engine{
		settings:   settings,
		wordlists:  wordlists.merged(),
		logger:     logger,
		metrics:    metrics,
		platform:   platform,
		classifier: classifier,
		lookup:     lookup,
		history:    NewHistory(2 * retention),
		violators:  newViolatorStore(),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		exemptions: make(map[string]time.Time),
	}

	e.rules = []Rule{
		{Name: "invite_link_abuse", Action: ActionKick, Eval: e.checkInviteLinks},
		{Name: "link_gate", Action: ActionHold, Eval: e.checkLinks},
		{Name: "fuzzy_keywords", Action: ActionWarn, Eval: e.checkFuzzyKeywords},
		{Name: "support_requests", Action: ActionWarn, Eval: e.checkSupportRequests},
		{Name: "external_classifier", Action: ActionWarnCustom, Eval: e.checkClassifier},
		{Name: "sensitive_topics", Action: ActionHold, Eval: e.checkSensitiveTopics},
		{Name: "duplicate_messages", Action: ActionMessageCleanup, Eval: e.checkDuplicates},
		{Name: "message_flood", Action: ActionMessageCleanup, Eval: e.checkFlood},
		{Name: "misleading_links", Action: ActionLog, Eval: e.checkMisleadingLinks},
	}

	return e
}

// Start launches the history sweep; Stop terminates it.
func (e *Engine) Start() { e.history.Start() }
func (e *Engine) Stop() { e.history.Stop() }

// SetGuildInfo installs the identifiers the bot resolves at Ready: the
// trusted role granted on clearance and the moderator log channel.
func (e *Engine) SetGuildInfo(trustedRoleID, modLogChannelID string) {
	e.infoMu.Lock()
	e.trustedRoleID = trustedRoleID
	e.modLogChannel = modLogChannelID
	e.infoMu.Unlock()
}

func (e *Engine) guildInfo() (trustedRoleID, modLogChannelID string) {
	e.infoMu.RLock()
	defer e.infoMu.RUnlock()
	return e.trustedRoleID, e.modLogChannel
}

// LoadTLDs fetches the IANA TLD list feeding the misleading-link rule.
// Failure leaves that rule's TLD matching disabled; everything else runs.
func (e *Engine) LoadTLDs(ctx context.Context) error {
	fetch := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.settings.TLDListURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := e.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("tld list fetch returned %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return string(body), nil
	}

	var raw interface{}
	var err error
	if e.lookup != nil {
		raw, err = e.lookup.Get(ctx, "spamkiller:tlds", fetch)
	} else {
		raw, err = fetch()
	}
	if err != nil {
		return fmt.Errorf("load tld list: %w", err)
	}
	text, ok := raw.(string)
	if !ok {
		return fmt.Errorf("unexpected cached tld list value %T", raw)
	}

	var tlds []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		// First line of the IANA dump is a comment.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tlds = append(tlds, "."+strings.ToLower(line))
	}

	e.infoMu.Lock()
	e.tlds = tlds
	e.infoMu.Unlock()
	return nil
}

func (e *Engine) tldSuffixes() []string {
	e.infoMu.RLock()
	defer e.infoMu.RUnlock()
	return e.tlds
}

// ProcessMessage runs one inbound message through the pipeline and applies
// the winning action. Safe for concurrent use across messages.
func (e *Engine) ProcessMessage(ctx context.Context, msg *Message) {
	if msg.AuthorIsBot || msg.GuildID == "" {
		return
	}
	e.metrics.MessagesProcessed.Inc()

	evals := e.evaluateRules(ctx, msg)

	// Record after evaluation so a message never counts toward its own
	// flood or duplicate query.
	e.history.Record(HistoryEntry{
		UserID:    msg.AuthorID,
		GuildID:   msg.GuildID,
		Ref:       msg.Ref(),
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	})

	var names []string
	for i := range evals {
		if evals[i].result.Triggered {
			names = append(names, evals[i].rule.Name)
		}
	}
	if len(names) == 0 {
		return
	}

	e.logger.Info("rules triggered",
		zap.String("user_id", msg.AuthorID),
		zap.String("username", msg.AuthorUsername),
		zap.String("message_id", msg.ID),
		zap.Strings("rules", names))

	// Reports fire for every triggered rule, winner or not.
	for i := range evals {
		if evals[i].result.Triggered && evals[i].result.AdminContent != nil {
			e.postModLog(msg.GuildID, *evals[i].result.AdminContent)
		}
	}

	// Role data can be missing from the gateway payload, so resolve the
	// member before deciding exemption. A vanished author needs no action.
	member := e.memberFor(msg)
	if member == nil {
		return
	}
	if member.HasAnyRole(e.settings.AdminRoles) {
		e.logger.Debug("author is exempt, skipping action",
			zap.String("user_id", msg.AuthorID))
		return
	}

	if winner := pickWinner(evals); winner != nil {
		e.dispatch(ctx, winner, msg)
	}
}

// postModLog sends admin-facing content to the moderator log channel.
func (e *Engine) postModLog(guildID string, content Content) (MessageRef, bool) {
	_, channelID := e.guildInfo()
	if channelID == "" {
		e.logger.Warn("no moderator log channel configured, dropping report")
		return MessageRef{}, false
	}
	ref, err := e.platform.SendMessage(guildID, channelID, content)
	if err != nil {
		e.metrics.PlatformFailures.WithLabelValues("send_message").Inc()
		e.logger.Warn("failed to post moderator report", zap.Error(err))
		return MessageRef{}, false
	}
	return ref, true
}

// exempted reports whether the user holds a live temporary exemption.
// Expiry is lazy; the set is small and overwritten on reapply.
func (e *Engine) exempted(userID string) bool {
	e.exemptMu.Lock()
	defer e.exemptMu.Unlock()
	until, ok := e.exemptions[userID]
	return ok && time.Now().Before(until)
}

// ExemptTemporarily installs or extends a reviewer-granted exemption from
// classifier scoring.
func (e *Engine) ExemptTemporarily(userID string) {
	e.exemptMu.Lock()
	e.exemptions[userID] = time.Now().Add(e.settings.TempExemption)
	e.exemptMu.Unlock()
}

// memberFor returns the author's member view, preferring the role data that
// arrived with the message over a platform fetch. Returns nil when the
// author already left the guild.
func (e *Engine) memberFor(msg *Message) *Member {
	if len(msg.AuthorRoles) > 0 {
		return &Member{UserID: msg.AuthorID, Username: msg.AuthorUsername, Roles: msg.AuthorRoles}
	}
	member, err := e.platform.FetchMember(msg.GuildID, msg.AuthorID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			e.logger.Info("author left before action could be taken",
				zap.String("user_id", msg.AuthorID))
		} else {
			e.metrics.PlatformFailures.WithLabelValues("fetch_member").Inc()
			e.logger.Warn("failed to fetch member", zap.String("user_id", msg.AuthorID), zap.Error(err))
		}
		return nil
	}
	return member
}

// HandleReaction processes a confirmation reaction on a held prompt: the
// flagged author themselves or an admin clears the record; anyone else is
// ignored.
func (e *Engine) HandleReaction(ctx context.Context, r Reaction) {
	if r.UserIsBot {
		return
	}
	v := e.violators.findByPrompt(r.MessageRef.MessageID)
	if v == nil {
		return
	}

	unlock := e.locks.lock(v.AuthorID)
	defer unlock()

	// Re-check under the lock; an escalation may have raced us.
	v = e.violators.findByPrompt(r.MessageRef.MessageID)
	if v == nil {
		return
	}

	if r.UserID != v.AuthorID {
		member, err := e.platform.FetchMember(r.MessageRef.GuildID, r.UserID)
		if err != nil {
			if !errors.Is(err, ErrMemberNotFound) {
				e.logger.Warn("failed to fetch reacting member", zap.Error(err))
			}
			return
		}
		if !member.HasAnyRole(e.settings.AdminRoles) {
			return
		}
	}

	e.logger.Info("confirmation reaction, reposting message",
		zap.String("reactor_id", r.UserID),
		zap.String("author_id", v.AuthorID),
		zap.String("emoji", r.Emoji))

	e.clearViolator(v, r.MessageRef.GuildID)
}

// clearViolator reposts the held content attributed to its author, removes
// the prompt, grants the trusted role, and destroys the record. Caller
// holds the author's shard lock.
func (e *Engine) clearViolator(v *Violator, guildID string) {
	logger := e.logger.With(zap.String("user_id", v.AuthorID))

	if v.PromptRef != nil {
		repost := Content{Text: fmt.Sprintf("<@%s> (%s) just said: \n%s",
			v.AuthorID, v.AuthorUsername, v.MessageContent)}
		if _, err := e.platform.SendMessage(guildID, v.PromptRef.ChannelID, repost); err != nil {
			e.metrics.PlatformFailures.WithLabelValues("send_message").Inc()
			logger.Warn("failed to repost cleared message", zap.Error(err))
		}
		if err := e.platform.DeleteMessage(*v.PromptRef); err != nil {
			e.metrics.PlatformFailures.WithLabelValues("delete_message").Inc()
			logger.Warn("failed to delete prompt", zap.Error(err))
		}
	}

	trustedRole, _ := e.guildInfo()
	if trustedRole != "" {
		if err := e.platform.AddRole(guildID, v.AuthorID, trustedRole); err != nil {
			e.metrics.PlatformFailures.WithLabelValues("add_role").Inc()
			logger.Warn("failed to grant trusted role", zap.Error(err))
		}
	}

	e.violators.remove(v.AuthorID)
}

// ReviewerActionKind enumerates the reviewer buttons on classifier reports.
type ReviewerActionKind int

const (
	ReviewerNotSpam ReviewerActionKind = iota
	ReviewerConfirmSpam
	ReviewerTempExempt
)

// ReviewerAction is a reviewer's button press on a classifier report.
type ReviewerAction struct {
	Kind       ReviewerActionKind
	MessageID  string
	GuildID    string
	ReviewerID string
}

// HandleReviewerAction applies a reviewer decision and returns the reply to
// show the reviewer.
func (e *Engine) HandleReviewerAction(ctx context.Context, act ReviewerAction) string {
	if !e.classifier.Enabled() {
		return "The anti-spam service is currently disabled"
	}

	v := e.violators.findByOrigMessage(act.MessageID)
	if v == nil {
		return "Couldn't find a flagged message with id " + act.MessageID
	}

	unlock := e.locks.lock(v.AuthorID)
	defer unlock()
	if e.violators.findByOrigMessage(act.MessageID) == nil {
		return "Couldn't find a flagged message with id " + act.MessageID
	}

	logger := e.logger.With(
		zap.String("reviewer_id", act.ReviewerID),
		zap.String("author_id", v.AuthorID),
		zap.String("message_id", act.MessageID))

	switch act.Kind {
	case ReviewerTempExempt:
		e.ExemptTemporarily(v.AuthorID)
		logger.Info("temporary exemption granted")
		return fmt.Sprintf("Temporarily exempted <@%s>", v.AuthorID)

	case ReviewerConfirmSpam:
		if err := e.classifier.MarkSpam(ctx, v.MessageContent); err != nil {
			logger.Warn("classifier positive feedback failed", zap.Error(err))
			return "Classifier update failed"
		}
		logger.Info("spam confirmed, positive feedback sent")
		e.resolveReport(v, act.ReviewerID, "confirmed spam")
		return "Classifier updated"

	case ReviewerNotSpam:
		// The reviewer's decision stands even when the feedback call fails;
		// restoring the author's message must not hinge on classifier health.
		feedbackErr := e.classifier.MarkNotSpam(ctx, v.MessageContent)
		if feedbackErr != nil {
			logger.Warn("classifier negative feedback failed", zap.Error(feedbackErr))
		}
		logger.Info("marked not spam, reposting")
		e.resolveReport(v, act.ReviewerID, "not spam")
		e.clearViolator(v, act.GuildID)
		if feedbackErr != nil {
			return "Message restored; classifier update failed"
		}
		return "Classifier updated, message restored"
	}
	return "Unknown action"
}

// resolveReport rewrites the reviewable mod-log report with the final
// decision, dropping the buttons so it cannot be decided twice.
func (e *Engine) resolveReport(v *Violator, reviewerID, decision string) {
	if v.ReportRef == nil {
		return
	}
	resolved := Content{
		Text: fmt.Sprintf("SpamKiller: Report resolved by <@%s>: %s\nContent: %s",
			reviewerID, decision, v.MessageContent),
	}
	if err := e.platform.EditMessage(*v.ReportRef, resolved); err != nil {
		e.metrics.PlatformFailures.WithLabelValues("edit_message").Inc()
		e.logger.Warn("failed to resolve report", zap.Error(err))
	}
	v.ReportRef = nil
}
