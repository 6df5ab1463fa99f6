package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fourall/internal/config"
	"fourall/internal/database"
	"fourall/internal/models"
	"fourall/internal/repository"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		deriveReducedMotion = false
		exportOutput, importInput, importClear = "", "", false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDeriveFromStdin(t *testing.T) {
	out, err := execute(t,
		`{"language":"en","interactionMode":"text","disabilities":["visual"],"uiComplexity":"moderate"}`,
		"derive", "--reduced-motion", "-")
	require.NoError(t, err)

	var cfg models.UIConfig
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, models.ContrastHigh, cfg.ContrastMode)
	assert.Equal(t, models.DensitySimplified, cfg.LayoutDensity)
	assert.GreaterOrEqual(t, cfg.FontSizeBase, 20)
	assert.False(t, cfg.AnimationEnabled)
}

func TestDeriveRejectsBadProfile(t *testing.T) {
	_, err := execute(t, "not json", "derive", "-")
	assert.Error(t, err)
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "ctl.db"))
	t.Setenv("LOG_LEVEL", "error")

	backupPath := filepath.Join(dir, "out", "backup.json")
	out, err := execute(t, "", "export", "--output", backupPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 0 entries and 0 actions")

	raw, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))

	out, err = execute(t, "no\n", "import", "--input", backupPath, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Import cancelled")

	out, err = execute(t, "yes\n", "import", "--input", backupPath, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 entries and 0 actions")
}

func TestProfiles(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ctl.db")
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	ctx := context.Background()
	db, err := database.Open(ctx, config.Database{Type: "sqlite", Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	repo := repository.NewProfileRepository(db)
	require.NoError(t, repo.Save(ctx, "sess-b", &models.UserProfile{Language: models.LanguageHausa, InteractionMode: models.InteractionVoice, IsOnboardingComplete: true}))
	require.NoError(t, repo.Save(ctx, "sess-a", &models.UserProfile{Language: models.LanguageEnglish, InteractionMode: models.InteractionText}))
	require.NoError(t, db.Close())

	out, err := execute(t, "", "profiles")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SESSION"))
	assert.Contains(t, lines[1], "sess-a")
	assert.Contains(t, lines[1], "text")
	assert.Contains(t, lines[2], "sess-b")
	assert.Contains(t, lines[2], "ha")
	assert.Contains(t, lines[2], "true")
}
