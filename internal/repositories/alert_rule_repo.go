package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/sentinel/internal/database"
	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/jackc/pgx/v5"
)

// AlertRuleRepository stores alert rules in Postgres. Columns are nullable so
// partially configured rules round-trip unchanged.
type AlertRuleRepository struct {
	db *database.DB
}

// NewAlertRuleRepository creates a new AlertRuleRepository
func NewAlertRuleRepository(db *database.DB) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

func scanAlertRule(row rowScanner) (*models.AlertRule, error) {
	var (
		rule      models.AlertRule
		alertType string
		cooldown  *int32
	)

	if err := row.Scan(&alertType, &rule.Enabled, &rule.Threshold, &cooldown, &rule.LastTriggered); err != nil {
		return nil, database.MapPostgresError(err)
	}

	rule.Type = models.AlertType(alertType)
	if cooldown != nil {
		v := int(*cooldown)
		rule.CooldownMinutes = &v
	}

	return &rule, nil
}

// GetRule returns the stored rule for alertType or models.ErrNotFound
func (r *AlertRuleRepository) GetRule(ctx context.Context, alertType models.AlertType) (*models.AlertRule, error) {
	query := `
		SELECT alert_type, enabled, threshold, cooldown_minutes, last_triggered
		FROM alert_rules
		WHERE alert_type = $1
	`

	rule, err := scanAlertRule(r.db.Pool.QueryRow(ctx, query, string(alertType)))
	if err != nil {
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}

	return rule, nil
}

// ListRules returns every stored rule ordered by type
func (r *AlertRuleRepository) ListRules(ctx context.Context) ([]*models.AlertRule, error) {
	query := `
		SELECT alert_type, enabled, threshold, cooldown_minutes, last_triggered
		FROM alert_rules
		ORDER BY alert_type
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}

	return scanAlertRuleRows(rows)
}

func scanAlertRuleRows(rows pgx.Rows) ([]*models.AlertRule, error) {
	defer rows.Close()

	rules := make([]*models.AlertRule, 0)
	for rows.Next() {
		rule, err := scanAlertRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rule rows: %w", err)
	}

	return rules, nil
}

// SaveRule inserts or replaces the rule for rule.Type
func (r *AlertRuleRepository) SaveRule(ctx context.Context, rule *models.AlertRule) error {
	query := `
		INSERT INTO alert_rules (alert_type, enabled, threshold, cooldown_minutes, last_triggered, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (alert_type) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			threshold = EXCLUDED.threshold,
			cooldown_minutes = EXCLUDED.cooldown_minutes,
			last_triggered = EXCLUDED.last_triggered,
			updated_at = EXCLUDED.updated_at
	`

	var cooldown *int32
	if rule.CooldownMinutes != nil {
		v := int32(*rule.CooldownMinutes)
		cooldown = &v
	}

	_, err := r.db.Pool.Exec(ctx, query,
		string(rule.Type),
		rule.Enabled,
		rule.Threshold,
		cooldown,
		rule.LastTriggered,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save alert rule: %w", database.MapPostgresError(err))
	}

	return nil
}

// TouchTriggered records a trigger time without touching the configured fields
func (r *AlertRuleRepository) TouchTriggered(ctx context.Context, alertType models.AlertType, at time.Time) error {
	query := `
		INSERT INTO alert_rules (alert_type, last_triggered, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (alert_type) DO UPDATE SET
			last_triggered = EXCLUDED.last_triggered,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool.Exec(ctx, query, string(alertType), at, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record alert trigger: %w", database.MapPostgresError(err))
	}

	return nil
}
