package moderation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ActionKind is the action a triggered rule asks for. Higher values take
// priority when several rules trigger on the same message.
type ActionKind int

const (
	ActionLog ActionKind = iota
	ActionMessageCleanup
	ActionHold
	ActionWarn
	ActionWarnCustom
	ActionKick
)

func (a ActionKind) String() string {
	switch a {
	case ActionKick:
		return "kick"
	case ActionWarnCustom:
		return "warn_custom"
	case ActionWarn:
		return "warn"
	case ActionHold:
		return "hold"
	case ActionMessageCleanup:
		return "message_cleanup"
	case ActionLog:
		return "log"
	}
	return "unknown"
}

// Result is a rule's verdict for one message. A zero Result means the rule
// did not trigger. Audit and content fields are meaningful only when
// Triggered is set.
type Result struct {
	Triggered bool

	// Override replaces the rule's default action for this message only.
	// It changes which priority tier the rule competes in, not its
	// evaluation order.
	Override    ActionKind
	HasOverride bool

	AuditReason  string
	UserContent  *Content
	AdminContent *Content

	// Applied marks outcomes the rule already executed itself (the
	// classifier rule deletes and reports inline); the dispatcher records
	// them but performs no further platform calls.
	Applied bool
}

// EvalFunc evaluates one rule against one message. Returning an error (or
// panicking) counts as not triggered; one misbehaving detector must never
// block the others.
type EvalFunc func(ctx context.Context, msg *Message) (Result, error)

// Rule pairs a detector with its default action.
type Rule struct {
	Name   string
	Action ActionKind
	Eval   EvalFunc
}

// evaluation is one rule's recorded verdict, with the effective action after
// any override.
type evaluation struct {
	rule   *Rule
	action ActionKind
	result Result
}

// evaluateRules runs every rule against the message and records every
// verdict. This is deliberately scan-all rather than short-circuit:
// independent detectors must not suppress each other's reports even when a
// higher-priority action ends up winning.
func (e *Engine) evaluateRules(ctx context.Context, msg *Message) []evaluation {
	evals := make([]evaluation, 0, len(e.rules))
	for i := range e.rules {
		rule := &e.rules[i]
		res := e.evalOne(ctx, rule, msg)

		action := rule.Action
		if res.Triggered && res.HasOverride {
			action = res.Override
		}
		evals = append(evals, evaluation{rule: rule, action: action, result: res})

		if res.Triggered {
			e.metrics.RuleTriggers.WithLabelValues(rule.Name, action.String()).Inc()
		}
	}
	return evals
}

// evalOne isolates a single rule: panics and errors are logged and treated
// as non-trigger.
func (e *Engine) evalOne(ctx context.Context, rule *Rule, msg *Message) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule panicked",
				zap.String("rule", rule.Name),
				zap.String("message_id", msg.ID),
				zap.String("panic", fmt.Sprint(r)))
			res = Result{}
		}
	}()

	res, err := rule.Eval(ctx, msg)
	if err != nil {
		e.logger.Warn("rule evaluation failed",
			zap.String("rule", rule.Name),
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return Result{}
	}
	return res
}

// pickWinner selects the highest-priority triggered evaluation. Within a
// tier the first rule in pipeline order wins.
func pickWinner(evals []evaluation) *evaluation {
	var winner *evaluation
	for i := range evals {
		ev := &evals[i]
		if !ev.result.Triggered {
			continue
		}
		if winner == nil || ev.action > winner.action {
			winner = ev
		}
	}
	return winner
}
