package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fourall/internal/database"
	"fourall/internal/models"
)

// QueueRepository handles offline action queue database operations
type QueueRepository struct {
	db database.DBTX
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db database.DBTX) *QueueRepository {
	return &QueueRepository{db: db}
}

const actionColumns = `id, session_id, action_type, data, created_at, retry_count, max_retries, status, last_error`

// Insert stores a new queued action
func (r *QueueRepository) Insert(ctx context.Context, a *models.QueuedAction) error {
	query := `
		INSERT INTO queued_actions (` + actionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.SessionID, string(a.Type), string(a.Data), a.Timestamp.UTC(),
		a.RetryCount, a.MaxRetries, string(a.Status), a.LastError,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// GetByID retrieves one action
func (r *QueueRepository) GetByID(ctx context.Context, id string) (*models.QueuedAction, error) {
	query := `SELECT ` + actionColumns + ` FROM queued_actions WHERE id = ?`
	a, err := scanAction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return a, err
}

// ListBySession returns the actions of one session, oldest first
func (r *QueueRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.QueuedAction, error) {
	query := `SELECT ` + actionColumns + ` FROM queued_actions WHERE session_id = ? ORDER BY created_at`
	return r.list(ctx, query, sessionID)
}

// ListByStatus returns up to limit actions in the given status, oldest first
func (r *QueueRepository) ListByStatus(ctx context.Context, status models.ActionStatus, limit int) ([]*models.QueuedAction, error) {
	query := `SELECT ` + actionColumns + ` FROM queued_actions WHERE status = ? ORDER BY created_at LIMIT ?`
	return r.list(ctx, query, string(status), limit)
}

// UpdateState persists the status, retry count and last error of an action
func (r *QueueRepository) UpdateState(ctx context.Context, a *models.QueuedAction) error {
	query := `UPDATE queued_actions SET status = ?, retry_count = ?, last_error = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, string(a.Status), a.RetryCount, a.LastError, a.ID)
	if err != nil {
		return fmt.Errorf("update action %s: %w", a.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Claim moves an action from queued to processing.
// It reports false when another worker claimed it first.
func (r *QueueRepository) Claim(ctx context.Context, id string) (bool, error) {
	query := `UPDATE queued_actions SET status = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query, string(models.StatusProcessing), id, string(models.StatusQueued))
	if err != nil {
		return false, fmt.Errorf("claim action %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteFinished removes the completed and failed actions of a session
func (r *QueueRepository) DeleteFinished(ctx context.Context, sessionID string) (int64, error) {
	query := `DELETE FROM queued_actions WHERE session_id = ? AND status IN (?, ?)`
	result, err := r.db.ExecContext(ctx, query, sessionID, string(models.StatusCompleted), string(models.StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("cleanup actions: %w", err)
	}
	return result.RowsAffected()
}

// ResetProcessing returns actions stranded in processing by a crash to queued
func (r *QueueRepository) ResetProcessing(ctx context.Context) (int64, error) {
	query := `UPDATE queued_actions SET status = ? WHERE status = ?`
	result, err := r.db.ExecContext(ctx, query, string(models.StatusQueued), string(models.StatusProcessing))
	if err != nil {
		return 0, fmt.Errorf("reset processing actions: %w", err)
	}
	return result.RowsAffected()
}

func (r *QueueRepository) list(ctx context.Context, query string, args ...any) ([]*models.QueuedAction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.QueuedAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*models.QueuedAction, error) {
	a := &models.QueuedAction{}
	var actionType, status, data string
	err := row.Scan(
		&a.ID,
		&a.SessionID,
		&actionType,
		&data,
		&a.Timestamp,
		&a.RetryCount,
		&a.MaxRetries,
		&status,
		&a.LastError,
	)
	if err != nil {
		return nil, err
	}
	a.Type = models.ActionType(actionType)
	a.Status = models.ActionStatus(status)
	a.Data = []byte(data)
	return a, nil
}

// ListAll returns every action, oldest first
func (r *QueueRepository) ListAll(ctx context.Context) ([]*models.QueuedAction, error) {
	return r.list(ctx, `SELECT `+actionColumns+` FROM queued_actions ORDER BY created_at`)
}
