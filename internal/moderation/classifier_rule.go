package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Reviewer button custom ID prefixes, shared with the bot layer.
const (
	ButtonNotSpam     = "spamkiller_notspam_"
	ButtonConfirmSpam = "spamkiller_confirmspam_"
	ButtonTempExempt  = "spamkiller_tempexempt_"
)

// Confidence bands for the external classifier.
const (
	classifierRemoveThreshold = 0.80
	classifierReportThreshold = 0.60
)

// checkClassifier scores the message with the external service. Above the
// removal threshold it deletes, reports, notifies, and flags the author
// inline; between the thresholds it only reports; an unavailable endpoint
// abstains and is never treated as a verdict.
func (e *Engine) checkClassifier(ctx context.Context, msg *Message) (Result, error) {
	if !e.classifier.Enabled() {
		return Result{}, nil
	}
	if hasAnyID(msg.AuthorRoles, e.settings.AdminRoles) {
		return Result{}, nil
	}
	if e.exempted(msg.AuthorID) {
		return Result{}, nil
	}

	start := time.Now()
	score, err := e.classifier.Score(ctx, msg.Content)
	e.metrics.ClassifierLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, ErrClassifierUnavailable) {
			e.metrics.ClassifierVerdicts.WithLabelValues(VerdictUnavailable).Inc()
			e.logger.Warn("classifier unavailable, abstaining",
				zap.String("message_id", msg.ID), zap.Error(err))
			return Result{}, nil
		}
		return Result{}, err
	}

	switch {
	case score.Confidence > classifierRemoveThreshold:
		e.metrics.ClassifierVerdicts.WithLabelValues(VerdictSpam).Inc()
		e.applyClassifierRemoval(msg, score)
		return Result{
			Triggered:   true,
			Applied:     true,
			AuditReason: fmt.Sprintf("spam classifier confidence %.4f", score.Confidence),
		}, nil

	case score.Confidence > classifierReportThreshold:
		e.metrics.ClassifierVerdicts.WithLabelValues(VerdictSuspect).Inc()
		e.logger.Info("message is potentially spam",
			zap.String("message_id", msg.ID),
			zap.Float64("confidence", score.Confidence))
		e.postModLog(msg.GuildID, Content{
			Text: fmt.Sprintf(
				"SpamKiller: Message in <#%s> is potentially spam %s Confidence: %v\nContent: %s",
				msg.ChannelID, messageLink(msg.Ref()), score.Confidence, msg.CleanContent),
		})

	default:
		e.metrics.ClassifierVerdicts.WithLabelValues(VerdictClean).Inc()
	}
	return Result{}, nil
}

// applyClassifierRemoval performs the high-confidence outcome: delete the
// message, post the reviewable report, notify the channel, and open or
// extend the author's violator record.
func (e *Engine) applyClassifierRemoval(msg *Message, score ClassifierScore) {
	unlock := e.locks.lock(msg.AuthorID)
	defer unlock()

	logger := e.logger.With(
		zap.String("user_id", msg.AuthorID),
		zap.String("message_id", msg.ID),
		zap.Float64("confidence", score.Confidence))

	logger.Info("classifier removal threshold exceeded, removing message")

	e.platformCall(logger, "delete_message", func() error {
		return e.platform.DeleteMessage(msg.Ref())
	})

	report := Content{
		Text: fmt.Sprintf(
			"SpamKiller: Spam classifier removal threshold exceeded, removing message\nContent: %s",
			msg.CleanContent),
		Buttons: []Button{
			{ID: ButtonNotSpam + msg.ID, Label: "Not Spam", Primary: true},
			{ID: ButtonConfirmSpam + msg.ID, Label: "Confirm Spam"},
			{ID: ButtonTempExempt + msg.ID, Label: "Exempt temporarily"},
		},
	}
	reportRef, reported := e.postModLog(msg.GuildID, report)

	extraInfo := ""
	var storedReport *MessageRef
	if reported {
		extraInfo = fmt.Sprintf("[Reviewer Info](%s)", messageLink(reportRef))
		storedReport = &reportRef
	}

	notice := Content{
		Embed: &Embed{
			Title: "Message Removed",
			Description: fmt.Sprintf(
				"<@%s> Your message has been removed by an automated filter. "+
					"If you believe this was an error, please contact a moderator. %s",
				msg.AuthorID, extraInfo),
			Footer: fmt.Sprintf("v:%d | Message scored %.5f | Message ID: %s",
				score.ModelTime, score.Confidence, msg.ID),
		},
	}

	var promptRef *MessageRef
	if ref, err := e.platform.SendMessage(msg.GuildID, msg.ChannelID, notice); err != nil {
		e.metrics.PlatformFailures.WithLabelValues("send_message").Inc()
		logger.Warn("failed to post removal notice", zap.Error(err))
	} else {
		promptRef = &ref
	}

	updated := e.violators.update(msg.AuthorID, func(v *Violator) {
		v.Violations++
		v.MessageContent = msg.Content
		v.OrigMessageID = msg.ID
		v.ReportRef = storedReport
		if promptRef != nil {
			v.PromptRef = promptRef
		}
	})
	if updated {
		return
	}
	e.violators.put(&Violator{
		AuthorID:       msg.AuthorID,
		AuthorUsername: msg.AuthorUsername,
		MessageContent: msg.Content,
		PromptRef:      promptRef,
		OrigMessageID:  msg.ID,
		ReportRef:      storedReport,
		Violations:     1,
	})
}
