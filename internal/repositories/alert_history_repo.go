package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/sentinel/internal/database"
	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AlertHistoryRepository stores fired alerts in Postgres
type AlertHistoryRepository struct {
	db *database.DB
}

// NewAlertHistoryRepository creates a new AlertHistoryRepository
func NewAlertHistoryRepository(db *database.DB) *AlertHistoryRepository {
	return &AlertHistoryRepository{db: db}
}

// Append inserts event and trims history to the newest limit entries in the
// same transaction
func (r *AlertHistoryRepository) Append(ctx context.Context, event *models.AlertEvent, limit int) error {
	insert := `
		INSERT INTO alert_events (id, alert_type, occurred_at, message, severity, acknowledged, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	trim := `
		DELETE FROM alert_events
		WHERE id NOT IN (
			SELECT id FROM alert_events
			ORDER BY occurred_at DESC, id DESC
			LIMIT $1
		)
	`

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insert,
			event.ID,
			string(event.Type),
			event.Timestamp,
			event.Message,
			string(event.Severity),
			event.Acknowledged,
			event.Data,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if limit > 0 {
			if _, err := tx.Exec(ctx, trim, limit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append alert event: %w", err)
	}

	return nil
}

// List returns up to limit events, newest first
func (r *AlertHistoryRepository) List(ctx context.Context, limit int) ([]*models.AlertEvent, error) {
	query := `
		SELECT id, alert_type, occurred_at, message, severity, acknowledged, data
		FROM alert_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.AlertEvent, 0)
	for rows.Next() {
		var (
			event     models.AlertEvent
			alertType string
			severity  string
		)
		err := rows.Scan(&event.ID, &alertType, &event.Timestamp, &event.Message, &severity, &event.Acknowledged, &event.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		event.Type = models.AlertType(alertType)
		event.Severity = models.Severity(severity)
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert event rows: %w", err)
	}

	return events, nil
}

// Acknowledge marks an event acknowledged. Unknown ids return models.ErrNotFound.
func (r *AlertHistoryRepository) Acknowledge(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE alert_events SET acknowledged = TRUE WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Clear deletes all alert history
func (r *AlertHistoryRepository) Clear(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM alert_events`); err != nil {
		return fmt.Errorf("failed to clear alert history: %w", err)
	}
	return nil
}
