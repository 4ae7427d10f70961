package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/sentinel/internal/database"
	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/jackc/pgx/v5"
)

// AttemptRepository stores attempt events in Postgres
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Append records an attempt event
func (r *AttemptRepository) Append(ctx context.Context, event *models.AttemptEvent) error {
	query := `
		INSERT INTO attempt_events (key_scope, key_value, action_type, success, user_agent, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text
	`

	err := r.db.Pool.QueryRow(ctx, query,
		string(event.Key.Scope),
		event.Key.Value,
		string(event.Action),
		event.Success,
		event.UserAgent,
		event.Timestamp,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("%w: append attempt: %v", models.ErrStoreUnavailable, err)
	}

	return nil
}

// Query returns the events for key and action at or after since, most recent first.
// An empty result is not an error.
func (r *AttemptRepository) Query(ctx context.Context, key models.AttemptKey, action models.ActionType, since time.Time) ([]*models.AttemptEvent, error) {
	query := `
		SELECT id::text, key_scope, key_value, action_type, success, user_agent, attempted_at
		FROM attempt_events
		WHERE key_scope = $1 AND key_value = $2 AND action_type = $3 AND attempted_at >= $4
		ORDER BY attempted_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, string(key.Scope), key.Value, string(action), since)
	if err != nil {
		return nil, fmt.Errorf("%w: query attempts: %v", models.ErrStoreUnavailable, err)
	}

	return scanAttemptRows(rows)
}

// DeleteOlderThan removes attempt events recorded before cutoff
func (r *AttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM attempt_events WHERE attempted_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired attempts: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanAttemptRows(rows pgx.Rows) ([]*models.AttemptEvent, error) {
	defer rows.Close()

	events := make([]*models.AttemptEvent, 0)

	for rows.Next() {
		var (
			event  models.AttemptEvent
			scope  string
			action string
		)
		err := rows.Scan(&event.ID, &scope, &event.Key.Value, &action, &event.Success, &event.UserAgent, &event.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: scan attempt: %v", models.ErrStoreUnavailable, err)
		}
		event.Key.Scope = models.KeyScope(scope)
		event.Action = models.ActionType(action)
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate attempts: %v", models.ErrStoreUnavailable, err)
	}

	return events, nil
}
