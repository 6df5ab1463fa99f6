package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fourall/internal/database"
	"fourall/internal/models"
)

// ProfileKeyPrefix namespaces profile blobs in the key/value store
const ProfileKeyPrefix = "fourall:profile:"

// ProfileKey returns the storage key of a session's profile
func ProfileKey(sessionID string) string {
	return ProfileKeyPrefix + sessionID
}

// profileBlob is the persisted shape of a profile
type profileBlob struct {
	Profile models.UserProfile `json:"profile"`
}

// ProfileRepository persists one profile per session as a JSON blob
type ProfileRepository struct {
	db *database.DB
	kv *KVRepository
}

func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db, kv: NewKVRepository(db)}
}

// Get retrieves the profile of a session
func (r *ProfileRepository) Get(ctx context.Context, sessionID string) (*models.UserProfile, error) {
	return getProfile(ctx, r.kv, sessionID)
}

// Save stores the profile of a session, replacing any previous one
func (r *ProfileRepository) Save(ctx context.Context, sessionID string, p *models.UserProfile) error {
	return saveProfile(ctx, r.kv, sessionID, p)
}

// Update applies fn to the stored profile inside a transaction and saves the result.
// A missing profile aborts with models.ErrNotFound before fn is called.
func (r *ProfileRepository) Update(ctx context.Context, sessionID string, fn func(p *models.UserProfile) error) (*models.UserProfile, error) {
	var updated *models.UserProfile
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		kv := NewKVRepository(tx)
		p, err := getProfile(ctx, kv, sessionID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := saveProfile(ctx, kv, sessionID, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the profile of a session
func (r *ProfileRepository) Delete(ctx context.Context, sessionID string) error {
	return r.kv.Delete(ctx, ProfileKey(sessionID))
}

// List returns every stored profile keyed by session ID
func (r *ProfileRepository) List(ctx context.Context) (map[string]*models.UserProfile, error) {
	entries, err := r.kv.ListPrefix(ctx, ProfileKeyPrefix)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*models.UserProfile, len(entries))
	for _, e := range entries {
		var blob profileBlob
		if err := json.Unmarshal([]byte(e.Value), &blob); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		profiles[strings.TrimPrefix(e.Key, ProfileKeyPrefix)] = &blob.Profile
	}
	return profiles, nil
}

func getProfile(ctx context.Context, kv *KVRepository, sessionID string) (*models.UserProfile, error) {
	entry, err := kv.Get(ctx, ProfileKey(sessionID))
	if err != nil {
		return nil, err
	}

	var blob profileBlob
	if err := json.Unmarshal([]byte(entry.Value), &blob); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &blob.Profile, nil
}

func saveProfile(ctx context.Context, kv *KVRepository, sessionID string, p *models.UserProfile) error {
	data, err := json.Marshal(profileBlob{Profile: *p})
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return kv.Set(ctx, ProfileKey(sessionID), string(data), updatedAt)
}
