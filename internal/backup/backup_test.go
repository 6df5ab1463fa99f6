package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fourall/internal/config"
	"fourall/internal/database"
	"fourall/internal/logger"
	"fourall/internal/models"
	"fourall/internal/repository"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), config.Database{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "backup_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	return db
}

func seed(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()

	profile := &models.UserProfile{
		ProfileID:       "p-1",
		Name:            "Chidi",
		Language:        models.LanguageIgbo,
		InteractionMode: models.InteractionVoice,
		Disabilities:    models.NewDisabilitySet(models.DisabilityHearing),
		CognitiveScore:  6,
	}
	require.NoError(t, repository.NewProfileRepository(db).Save(ctx, "s1", profile))
	require.NoError(t, repository.NewPINRepository(db).SetHash(ctx, "s1", "$2a$10$hash"))
	require.NoError(t, repository.NewQueueRepository(db).Insert(ctx, &models.QueuedAction{
		ID:         "a-1",
		SessionID:  "s1",
		Type:       models.ActionBillPayment,
		Data:       json.RawMessage(`{"biller":"NEPA","amount":1200}`),
		Timestamp:  time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		MaxRetries: 3,
		Status:     models.StatusQueued,
	}))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestDB(t)
	seed(t, src)

	var buf bytes.Buffer
	data, err := NewService(src, logger.NewNop()).ExportToWriter(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, data.Version)
	assert.Len(t, data.Entries, 2)
	assert.Len(t, data.Actions, 1)

	dst := openTestDB(t)
	svc := NewService(dst, logger.NewNop())
	counts, err := svc.ImportFromReader(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, Counts{Entries: 2, Actions: 1}, counts)

	got, err := repository.NewProfileRepository(dst).Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Chidi", got.Name)
	assert.True(t, got.Disabilities.Has(models.DisabilityHearing))

	hash, err := repository.NewPINRepository(dst).GetHash(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", hash)

	action, err := repository.NewQueueRepository(dst).GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"biller":"NEPA","amount":1200}`, string(action.Data))

	// A second import merges: entries are rewritten, known actions skipped
	counts, err = svc.ImportFromReader(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, Counts{Entries: 2, SkippedActions: 1}, counts)
}

func TestImportRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := NewService(openTestDB(t), logger.NewNop())

	tests := []struct {
		name  string
		input string
	}{
		{"not json", "{"},
		{"wrong version", `{"version":"0.1"}`},
		{"foreign key", `{"version":"1.0","entries":[{"key":"users:1","value":"x","updated_at":"2026-01-01T00:00:00Z"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportFromReader(ctx, strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seed(t, db)

	svc := NewService(db, logger.NewNop())
	require.NoError(t, svc.Clear(ctx))

	var buf bytes.Buffer
	data, err := svc.ExportToWriter(ctx, &buf)
	require.NoError(t, err)
	assert.Empty(t, data.Entries)
	assert.Empty(t, data.Actions)
}
