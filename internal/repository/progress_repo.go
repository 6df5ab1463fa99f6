package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fourall/internal/database"
	"fourall/internal/models"
)

// ProgressKeyPrefix namespaces onboarding progress blobs in the key/value store
const ProgressKeyPrefix = "fourall:onboarding_progress:"

// ProgressKey returns the storage key of a session's onboarding progress
func ProgressKey(sessionID string) string {
	return ProgressKeyPrefix + sessionID
}

// ProgressRepository persists in-flight onboarding progress as one JSON blob per session.
// The row timestamp mirrors LastUpdated so expired records can be swept in SQL.
type ProgressRepository struct {
	kv *KVRepository
}

func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{kv: NewKVRepository(db)}
}

// Get retrieves the progress of a session, returning models.ErrNotFound when absent
func (r *ProgressRepository) Get(ctx context.Context, sessionID string) (*models.OnboardingProgress, error) {
	entry, err := r.kv.Get(ctx, ProgressKey(sessionID))
	if err != nil {
		return nil, err
	}

	var p models.OnboardingProgress
	if err := json.Unmarshal([]byte(entry.Value), &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

// Save stores the progress of a session
func (r *ProgressRepository) Save(ctx context.Context, p *models.OnboardingProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return r.kv.Set(ctx, ProgressKey(p.SessionID), string(data), p.LastUpdated)
}

// Delete removes the progress of a session
func (r *ProgressRepository) Delete(ctx context.Context, sessionID string) error {
	return r.kv.Delete(ctx, ProgressKey(sessionID))
}

// DeleteExpired removes every progress record last updated before cutoff
func (r *ProgressRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.kv.DeleteOlderThan(ctx, ProgressKeyPrefix, cutoff)
}
