// Package backup dumps and restores the profile, progress, PIN and queue
// records of a database as one JSON document.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"fourall/internal/database"
	"fourall/internal/models"
	"fourall/internal/repository"
)

// FormatVersion is written into every export
const FormatVersion = "1.0"

// keyPrefix covers every key the application writes to kv_store
const keyPrefix = "fourall:"

// Data represents the complete database backup structure
type Data struct {
	Version      string                 `json:"version"`
	ExportedAt   time.Time              `json:"exported_at"`
	DatabaseType string                 `json:"database_type"`
	Entries      []EntryBackup          `json:"entries"`
	Actions      []*models.QueuedAction `json:"actions"`
}

// EntryBackup is one key/value record
type EntryBackup struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Counts reports how many records an import wrote
type Counts struct {
	Entries        int `json:"entries"`
	Actions        int `json:"actions"`
	SkippedActions int `json:"skipped_actions"`
}

// Service handles database backup and restore operations
type Service struct {
	db     *database.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new backup service
func NewService(db *database.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger, now: time.Now}
}

// ExportToWriter writes a backup of every record to w
func (s *Service) ExportToWriter(ctx context.Context, w io.Writer) (*Data, error) {
	entries, err := repository.NewKVRepository(s.db).ListPrefix(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to export entries: %w", err)
	}
	actions, err := repository.NewQueueRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export actions: %w", err)
	}

	data := &Data{
		Version:      FormatVersion,
		ExportedAt:   s.now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Entries:      make([]EntryBackup, 0, len(entries)),
		Actions:      actions,
	}
	for _, e := range entries {
		data.Entries = append(data.Entries, EntryBackup{Key: e.Key, Value: e.Value, UpdatedAt: e.UpdatedAt.UTC()})
	}
	if data.Actions == nil {
		data.Actions = []*models.QueuedAction{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("database exported", zap.Int("entries", len(data.Entries)), zap.Int("actions", len(data.Actions)))
	return data, nil
}

// ImportFromReader restores a backup in one transaction. Entries overwrite
// existing keys; actions whose ID already exists are skipped.
func (s *Service) ImportFromReader(ctx context.Context, r io.Reader) (Counts, error) {
	var data Data
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return Counts{}, fmt.Errorf("failed to decode backup: %w", err)
	}
	if data.Version != FormatVersion {
		return Counts{}, fmt.Errorf("unsupported backup version %q", data.Version)
	}

	s.logger.Info("importing backup", zap.String("version", data.Version), zap.Time("exported_at", data.ExportedAt))

	var counts Counts
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		kv := repository.NewKVRepository(tx)
		for _, e := range data.Entries {
			if !strings.HasPrefix(e.Key, keyPrefix) {
				return fmt.Errorf("foreign key %q in backup", e.Key)
			}
			if err := kv.Set(ctx, e.Key, e.Value, e.UpdatedAt); err != nil {
				return fmt.Errorf("failed to import entry %s: %w", e.Key, err)
			}
			counts.Entries++
		}

		queue := repository.NewQueueRepository(tx)
		for _, a := range data.Actions {
			_, err := queue.GetByID(ctx, a.ID)
			if err == nil {
				counts.SkippedActions++
				continue
			}
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}
			if err := queue.Insert(ctx, a); err != nil {
				return fmt.Errorf("failed to import action %s: %w", a.ID, err)
			}
			counts.Actions++
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}

	s.logger.Info("database import completed",
		zap.Int("entries", counts.Entries),
		zap.Int("actions", counts.Actions),
		zap.Int("skipped_actions", counts.SkippedActions),
	)
	return counts, nil
}

// Clear deletes every record the backup covers
func (s *Service) Clear(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM queued_actions`); err != nil {
			return fmt.Errorf("failed to clear queued_actions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_store WHERE store_key LIKE ?`, keyPrefix+"%"); err != nil {
			return fmt.Errorf("failed to clear kv_store: %w", err)
		}
		return nil
	})
}
