package moderation

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// kickNotice is sent best-effort before removing a member.
const kickNotice = "Hey there! You've been kicked because you triggered our spam filter. " +
	"There's a good chance your account has been compromised, please change your password."

type flagOpts struct {
	// allowReact adds the thumbs-up affordance to the prompt (hold path).
	allowReact bool
	// cleanupOnKick bulk-deletes the author's recent guild history if this
	// flag escalates to a kick.
	cleanupOnKick bool
}

// dispatch executes the winning action. Every platform call is isolated:
// a failed delete never blocks the kick that follows it, and vice versa.
func (e *Engine) dispatch(ctx context.Context, ev *evaluation, msg *Message) {
	e.metrics.ActionsDispatched.WithLabelValues(ev.action.String()).Inc()

	logger := e.logger.With(
		zap.String("rule", ev.rule.Name),
		zap.String("action", ev.action.String()),
		zap.String("user_id", msg.AuthorID),
		zap.String("message_id", msg.ID))

	switch ev.action {
	case ActionKick:
		e.platformCall(logger, "delete_message", func() error {
			return e.platform.DeleteMessage(msg.Ref())
		})
		e.platformCall(logger, "kick_member", func() error {
			return e.platform.KickMember(msg.GuildID, msg.AuthorID, ev.result.AuditReason)
		})

	case ActionWarnCustom:
		if ev.result.Applied {
			return
		}
		e.platformCall(logger, "delete_message", func() error {
			return e.platform.DeleteMessage(msg.Ref())
		})
		if ev.result.UserContent != nil {
			e.platformCall(logger, "send_message", func() error {
				_, err := e.platform.SendMessage(msg.GuildID, msg.ChannelID, *ev.result.UserContent)
				return err
			})
		}

	case ActionWarn:
		e.softFlag(msg, ev.result.UserContent, flagOpts{}, logger)

	case ActionHold:
		e.softFlag(msg, ev.result.UserContent, flagOpts{allowReact: true}, logger)

	case ActionMessageCleanup:
		e.softFlag(msg, ev.result.UserContent, flagOpts{cleanupOnKick: true}, logger)

	case ActionLog:
		// Report-only; the admin-facing content already went out.
	}
}

// softFlag deletes the message and either opens a confirmation record for a
// first offense or escalates an existing one. Only effectively roleless,
// untrusted accounts are ever flagged.
func (e *Engine) softFlag(msg *Message, content *Content, opts flagOpts, logger *zap.Logger) {
	unlock := e.locks.lock(msg.AuthorID)
	defer unlock()

	member := e.memberFor(msg)
	if member == nil {
		return
	}

	trustedRole, _ := e.guildInfo()
	if trustedRole != "" && member.HasAnyRole([]string{trustedRole}) {
		logger.Info("author holds the trusted role, not flagging")
		return
	}
	if e.countRealRoles(member) > 1 {
		logger.Info("author has real roles, not flagging",
			zap.Int("roles", len(member.Roles)))
		return
	}

	logger.Info("removing flagged message", zap.String("content", msg.Content))
	e.platformCall(logger, "delete_message", func() error {
		return e.platform.DeleteMessage(msg.Ref())
	})

	// Already awaiting confirmation; don't ask again.
	var repeat *Violator
	updated := e.violators.update(msg.AuthorID, func(v *Violator) {
		v.Violations++
		if msg.MentionsEveryone || v.Violations > e.settings.MaxViolations {
			repeat = v
		}
	})
	if updated {
		if repeat != nil {
			e.escalate(repeat, msg, opts.cleanupOnKick, logger)
		}
		return
	}

	v := &Violator{
		AuthorID:       msg.AuthorID,
		AuthorUsername: msg.AuthorUsername,
		MessageContent: msg.CleanContent,
		Violations:     1,
	}
	if content != nil {
		if ref, err := e.platform.SendMessage(msg.GuildID, msg.ChannelID, *content); err != nil {
			e.metrics.PlatformFailures.WithLabelValues("send_message").Inc()
			logger.Warn("failed to post confirmation prompt", zap.Error(err))
		} else {
			v.PromptRef = &ref
		}
	}
	e.violators.put(v)

	if opts.allowReact && v.PromptRef != nil {
		e.platformCall(logger, "react", func() error {
			return e.platform.React(*v.PromptRef, "👍")
		})
	}
}

// escalate kicks a repeat offender and destroys the record. Caller holds
// the author's shard lock.
func (e *Engine) escalate(v *Violator, msg *Message, cleanupHistory bool, logger *zap.Logger) {
	logger.Info("escalating repeat violator",
		zap.Int("violations", v.Violations),
		zap.Bool("mentions_everyone", msg.MentionsEveryone))

	if v.PromptRef != nil {
		e.platformCall(logger, "delete_message", func() error {
			return e.platform.DeleteMessage(*v.PromptRef)
		})
	}

	// Best effort; most compromised accounts have DMs closed.
	e.platformCall(logger, "send_dm", func() error {
		return e.platform.SendDirectMessage(msg.AuthorID, kickNotice)
	})

	e.platformCall(logger, "kick_member", func() error {
		return e.platform.KickMember(msg.GuildID, msg.AuthorID, "repeated spam filter triggers")
	})

	if cleanupHistory {
		entries := e.history.RemoveGuild(msg.AuthorID, msg.GuildID)
		refs := make([]MessageRef, 0, len(entries))
		for _, entry := range entries {
			if entry.Ref.MessageID != msg.ID {
				refs = append(refs, entry.Ref)
			}
		}
		if len(refs) > 0 {
			e.platformCall(logger, "bulk_delete", func() error {
				return e.platform.BulkDeleteMessages(refs)
			})
		}
	}

	e.violators.remove(v.AuthorID)
}

// countRealRoles counts roles outside the ignored set.
func (e *Engine) countRealRoles(member *Member) int {
	n := 0
	for _, role := range member.Roles {
		ignored := false
		for _, ig := range e.settings.IgnoredRoles {
			if role == ig {
				ignored = true
				break
			}
		}
		if !ignored {
			n++
		}
	}
	return n
}

// platformCall runs one platform operation, logging and counting a failure
// without propagating it. A vanished member downgrades to an info log.
func (e *Engine) platformCall(logger *zap.Logger, op string, fn func() error) bool {
	err := fn()
	if err == nil {
		return true
	}
	e.metrics.PlatformFailures.WithLabelValues(op).Inc()
	if errors.Is(err, ErrMemberNotFound) {
		logger.Info("member gone, skipping operation", zap.String("op", op))
	} else {
		logger.Warn("platform operation failed", zap.String("op", op), zap.Error(err))
	}
	return false
}
