// Package queue buffers network actions and analytics events until the
// backend accepts them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fourall/internal/models"
)

// flushBatch bounds how many actions one Flush delivers
const flushBatch = 100

// Store persists queued actions
type Store interface {
	Insert(ctx context.Context, a *models.QueuedAction) error
	ListBySession(ctx context.Context, sessionID string) ([]*models.QueuedAction, error)
	ListByStatus(ctx context.Context, status models.ActionStatus, limit int) ([]*models.QueuedAction, error)
	UpdateState(ctx context.Context, a *models.QueuedAction) error
	Claim(ctx context.Context, id string) (bool, error)
	DeleteFinished(ctx context.Context, sessionID string) (int64, error)
	ResetProcessing(ctx context.Context) (int64, error)
}

// FlushResult counts what one flush did
type FlushResult struct {
	Delivered int `json:"delivered"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// Queue is the offline action queue
type Queue struct {
	store      Store
	sink       Sink
	maxRetries int
	logger     *zap.Logger
	now        func() time.Time

	flushMu sync.Mutex
}

// New creates a queue. maxRetries <= 0 uses models.DefaultMaxRetries.
func New(store Store, sink Sink, maxRetries int, logger *zap.Logger) *Queue {
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}
	return &Queue{
		store:      store,
		sink:       sink,
		maxRetries: maxRetries,
		logger:     logger,
		now:        time.Now,
	}
}

// Enqueue stores a new action in the queued state
func (q *Queue) Enqueue(ctx context.Context, sessionID string, t models.ActionType, data json.RawMessage) (*models.QueuedAction, error) {
	if !t.Valid() {
		return nil, models.ValidationError{Field: "type", Message: fmt.Sprintf("unknown action type %q", t)}
	}
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if !json.Valid(data) {
		return nil, models.ValidationError{Field: "data", Message: "data must be valid JSON"}
	}

	a := &models.QueuedAction{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Type:       t,
		Data:       data,
		Timestamp:  q.now().UTC(),
		MaxRetries: q.maxRetries,
		Status:     models.StatusQueued,
	}
	if err := q.store.Insert(ctx, a); err != nil {
		return nil, err
	}

	q.logger.Info("action queued",
		zap.String("session_id", sessionID),
		zap.String("action_id", a.ID),
		zap.String("type", string(t)),
	)
	return a, nil
}

// Flush delivers every queued action once. A failed delivery goes back to
// queued until its retry budget is spent, then to failed.
func (q *Queue) Flush(ctx context.Context) (FlushResult, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	var res FlushResult
	actions, err := q.store.ListByStatus(ctx, models.StatusQueued, flushBatch)
	if err != nil {
		return res, err
	}

	for _, a := range actions {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		claimed, err := q.store.Claim(ctx, a.ID)
		if err != nil {
			return res, err
		}
		if !claimed {
			continue
		}
		a.Status = models.StatusProcessing

		q.deliver(ctx, a, &res)
		if err := q.store.UpdateState(ctx, a); err != nil {
			return res, err
		}
	}

	if res != (FlushResult{}) {
		q.logger.Info("queue flushed",
			zap.Int("delivered", res.Delivered),
			zap.Int("retried", res.Retried),
			zap.Int("failed", res.Failed),
		)
	}
	return res, nil
}

func (q *Queue) deliver(ctx context.Context, a *models.QueuedAction, res *FlushResult) {
	err := q.sink.Deliver(ctx, a)
	if err == nil {
		a.Status = models.StatusCompleted
		a.LastError = ""
		res.Delivered++
		return
	}

	a.RetryCount++
	a.LastError = err.Error()
	if a.RetryCount >= a.MaxRetries || isPermanent(err) {
		a.Status = models.StatusFailed
		res.Failed++
		q.logger.Warn("action failed",
			zap.String("action_id", a.ID),
			zap.Int("retry_count", a.RetryCount),
			zap.Error(err),
		)
		return
	}
	a.Status = models.StatusQueued
	res.Retried++
}

// Cleanup removes the completed and failed actions of a session
func (q *Queue) Cleanup(ctx context.Context, sessionID string) (int64, error) {
	return q.store.DeleteFinished(ctx, sessionID)
}

// List returns every action of a session, oldest first
func (q *Queue) List(ctx context.Context, sessionID string) ([]*models.QueuedAction, error) {
	return q.store.ListBySession(ctx, sessionID)
}

// Run flushes every interval until ctx is done. Actions left in processing
// by an earlier crash are requeued first.
func (q *Queue) Run(ctx context.Context, interval time.Duration) error {
	n, err := q.store.ResetProcessing(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		q.logger.Info("requeued stranded actions", zap.Int64("count", n))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := q.Flush(ctx); err != nil && ctx.Err() == nil {
				q.logger.Error("queue flush failed", zap.Error(err))
			}
		}
	}
}
