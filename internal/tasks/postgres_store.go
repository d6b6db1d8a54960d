package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mailcouncil/pkg/models"
)

// PostgresStore archives task snapshots as JSON documents keyed by task id.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts the snapshot. Archiving the same task twice is harmless; the
// later snapshot wins.
func (s *PostgresStore) Save(ctx context.Context, task models.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO debate_tasks (id, team_key, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
	`, task.ID, task.TeamKey, string(task.Status), payload, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to archive task %s: %w", task.ID, err)
	}
	return nil
}

// Load reads an archived snapshot back.
func (s *PostgresStore) Load(ctx context.Context, id string) (models.Task, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM debate_tasks WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to load task %s: %w", id, err)
	}

	var task models.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return models.Task{}, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	return task, nil
}
