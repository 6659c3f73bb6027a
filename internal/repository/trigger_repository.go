package repository

import (
	"context"
	"errors"
	"time"

	models "github.com/jetbridge/checkin/internal"
	"github.com/jackc/pgx/v5"
)

// TriggerRepository is the durable store behind the scheduler gateway:
// one-shot rules, their invocation targets, and the permissions that let
// the dispatcher invoke those targets. All registration writes are
// upserts keyed on the rule name, which is what gives repeated requests
// for the same reservation/instant their idempotency.
type TriggerRepository struct {
	db DBConn
}

func NewTriggerRepository(db DBConn) *TriggerRepository {
	return &TriggerRepository{db: db}
}

func (r *TriggerRepository) UpsertRule(ctx context.Context, rule models.TriggerRule) error {
	query := `
        INSERT INTO trigger_rules (rule_name, schedule_expression, fire_at, status, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (rule_name) DO UPDATE
        SET schedule_expression = EXCLUDED.schedule_expression,
            fire_at = EXCLUDED.fire_at,
            status = EXCLUDED.status
    `
	_, err := r.db.Exec(ctx, query,
		rule.RuleName, rule.ScheduleExpression, rule.FireAt, rule.Status, rule.CreatedAt)
	return err
}

func (r *TriggerRepository) UpsertTarget(ctx context.Context, target models.TriggerTarget) error {
	query := `
        INSERT INTO trigger_targets (rule_name, target_id, target_resource, payload)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (rule_name) DO UPDATE
        SET target_id = EXCLUDED.target_id,
            target_resource = EXCLUDED.target_resource,
            payload = EXCLUDED.payload
    `
	_, err := r.db.Exec(ctx, query,
		target.RuleName, target.TargetID, target.TargetResource, target.Payload)
	return err
}

func (r *TriggerRepository) UpsertPermission(ctx context.Context, permission models.TriggerPermission) error {
	query := `
        INSERT INTO trigger_permissions (rule_name, statement_id, action, source_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (statement_id) DO NOTHING
    `
	_, err := r.db.Exec(ctx, query,
		permission.RuleName, permission.StatementID, permission.Action, permission.SourceID)
	return err
}

// DeleteRule removes a rule and everything hanging off it. Used for
// request-scoped compensation when a later leg fails to register.
func (r *TriggerRepository) DeleteRule(ctx context.Context, ruleName string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `DELETE FROM trigger_permissions WHERE rule_name = $1`, ruleName); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM trigger_targets WHERE rule_name = $1`, ruleName); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM trigger_rules WHERE rule_name = $1`, ruleName); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AcquireDue leases the next pending rule whose fire time has passed.
// The lease is taken atomically so concurrent dispatchers never fire the
// same rule twice; a crashed dispatcher's lease simply expires.
func (r *TriggerRepository) AcquireDue(ctx context.Context, now time.Time, lease time.Duration) (*models.TriggerRule, error) {
	query := `
        UPDATE trigger_rules
        SET lease_until = $1
        WHERE rule_name IN (
            SELECT rule_name FROM trigger_rules
            WHERE status = $2
              AND fire_at <= $3
              AND (lease_until IS NULL OR lease_until < $3)
            ORDER BY fire_at ASC
            LIMIT 1
        )
        RETURNING rule_name, schedule_expression, fire_at, status, created_at
    `
	var rule models.TriggerRule
	err := r.db.QueryRow(ctx, query, now.Add(lease), models.TriggerPending, now).Scan(
		&rule.RuleName, &rule.ScheduleExpression, &rule.FireAt, &rule.Status, &rule.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *TriggerRepository) GetTarget(ctx context.Context, ruleName string) (*models.TriggerTarget, error) {
	query := `
        SELECT rule_name, target_id, target_resource, payload
        FROM trigger_targets
        WHERE rule_name = $1
    `
	var target models.TriggerTarget
	err := r.db.QueryRow(ctx, query, ruleName).Scan(
		&target.RuleName, &target.TargetID, &target.TargetResource, &target.Payload)
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *TriggerRepository) HasPermission(ctx context.Context, ruleName, statementID string) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM trigger_permissions
            WHERE rule_name = $1 AND statement_id = $2
        )
    `
	var authorized bool
	err := r.db.QueryRow(ctx, query, ruleName, statementID).Scan(&authorized)
	if err != nil {
		return false, err
	}
	return authorized, nil
}

// MarkFired flips a rule to FIRED. One-shot semantics: a fired rule is
// inert and will never be leased again.
func (r *TriggerRepository) MarkFired(ctx context.Context, ruleName string, firedAt time.Time) error {
	query := `
        UPDATE trigger_rules
        SET status = $1, fired_at = $2
        WHERE rule_name = $3
    `
	_, err := r.db.Exec(ctx, query, models.TriggerFired, firedAt, ruleName)
	return err
}

// PurgeFired deletes fired rules older than the cutoff, so the rule
// namespace does not grow without bound. Pending rules are never purged.
func (r *TriggerRepository) PurgeFired(ctx context.Context, firedBefore time.Time) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	sub := `SELECT rule_name FROM trigger_rules WHERE status = $1 AND fired_at < $2`
	if _, err = tx.Exec(ctx, `DELETE FROM trigger_permissions WHERE rule_name IN (`+sub+`)`,
		models.TriggerFired, firedBefore); err != nil {
		return 0, err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM trigger_targets WHERE rule_name IN (`+sub+`)`,
		models.TriggerFired, firedBefore); err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM trigger_rules WHERE status = $1 AND fired_at < $2`,
		models.TriggerFired, firedBefore)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
