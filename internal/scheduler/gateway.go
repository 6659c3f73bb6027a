// Package scheduler is the one-shot trigger backend: the gateway
// registers rules, targets and permissions, and the dispatcher fires
// due rules exactly once.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	models "github.com/jetbridge/checkin/internal"
	"github.com/jetbridge/checkin/pkg/logger"
)

// Config is the static identity the gateway stamps onto targets and
// permission statements. Read-only after process start.
type Config struct {
	Region       string
	AccountID    string
	FunctionName string
}

// RuleStore is what the gateway needs from the trigger repository.
type RuleStore interface {
	UpsertRule(ctx context.Context, rule models.TriggerRule) error
	UpsertTarget(ctx context.Context, target models.TriggerTarget) error
	UpsertPermission(ctx context.Context, permission models.TriggerPermission) error
	DeleteRule(ctx context.Context, ruleName string) error
}

// Gateway implements ports.TriggerScheduler over a durable rule store.
type Gateway struct {
	store RuleStore
	cfg   Config
	log   logger.Logger
}

func NewGateway(store RuleStore, cfg Config, log logger.Logger) *Gateway {
	return &Gateway{
		store: store,
		cfg:   cfg,
		log:   log,
	}
}

// RegisterRule creates or overwrites the one-shot schedule entry for a
// plan. Upsert semantics: re-registering the same rule name reuses the
// existing entry instead of creating a duplicate.
func (g *Gateway) RegisterRule(ctx context.Context, plan models.TriggerPlan) error {
	rule := models.TriggerRule{
		RuleName:           plan.RuleName,
		ScheduleExpression: fmt.Sprintf("cron(%s)", plan.ScheduleExpression),
		FireAt:             plan.Invoke.UTC(),
		Status:             models.TriggerPending,
		CreatedAt:          time.Now().UTC(),
	}

	if err := g.store.UpsertRule(ctx, rule); err != nil {
		return fmt.Errorf("putting rule: %w", err)
	}

	g.log.Debug("registered trigger rule",
		"rule_name", rule.RuleName,
		"schedule_expression", rule.ScheduleExpression)
	return nil
}

// AttachTarget associates the downstream check-in handler with a rule,
// carrying the serialized payload the handler needs when the rule fires.
func (g *Gateway) AttachTarget(ctx context.Context, ruleName, targetID string, payload models.InvocationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	target := models.TriggerTarget{
		RuleName:       ruleName,
		TargetID:       targetID,
		TargetResource: g.functionResource(),
		Payload:        body,
	}

	if err := g.store.UpsertTarget(ctx, target); err != nil {
		return fmt.Errorf("putting target: %w", err)
	}
	return nil
}

// AuthorizeInvocation grants the dispatcher permission to invoke the
// target function for this specific rule. The target id doubles as the
// statement id.
func (g *Gateway) AuthorizeInvocation(ctx context.Context, ruleName, targetID string) error {
	permission := models.TriggerPermission{
		RuleName:    ruleName,
		StatementID: targetID,
		Action:      "trigger:InvokeFunction",
		SourceID:    g.ruleSource(ruleName),
	}

	if err := g.store.UpsertPermission(ctx, permission); err != nil {
		return fmt.Errorf("adding permission: %w", err)
	}
	return nil
}

func (g *Gateway) DeleteRule(ctx context.Context, ruleName string) error {
	return g.store.DeleteRule(ctx, ruleName)
}

func (g *Gateway) functionResource() string {
	return fmt.Sprintf("trigger:%s:%s:function/%s", g.cfg.Region, g.cfg.AccountID, g.cfg.FunctionName)
}

func (g *Gateway) ruleSource(ruleName string) string {
	return fmt.Sprintf("trigger:%s:%s:rule/%s", g.cfg.Region, g.cfg.AccountID, ruleName)
}
