package repository

import (
	"context"
	"time"

	"fourall/internal/database"
)

// PINKeyPrefix namespaces confirm PIN hashes in the key/value store
const PINKeyPrefix = "fourall:pin:"

// PINRepository stores the bcrypt hash of each session's confirm PIN
type PINRepository struct {
	kv *KVRepository
}

func NewPINRepository(db database.DBTX) *PINRepository {
	return &PINRepository{kv: NewKVRepository(db)}
}

// GetHash returns the stored PIN hash, or models.ErrNotFound
func (r *PINRepository) GetHash(ctx context.Context, sessionID string) (string, error) {
	entry, err := r.kv.Get(ctx, PINKeyPrefix+sessionID)
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// DeleteHash removes the PIN of a session
func (r *PINRepository) DeleteHash(ctx context.Context, sessionID string) error {
	return r.kv.Delete(ctx, PINKeyPrefix+sessionID)
}

// SetHash stores a PIN hash
func (r *PINRepository) SetHash(ctx context.Context, sessionID, hash string) error {
	return r.kv.Set(ctx, PINKeyPrefix+sessionID, hash, time.Now())
}
