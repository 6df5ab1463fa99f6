// Command fourallctl is the operator tool for a 4All database: backups,
// offline queue flushing and UI configuration previews.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fourall/internal/config"
	"fourall/internal/database"
	"fourall/internal/logger"
)

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fourallctl",
	Short: "4All operator tool",
	Long: `Operator tool for a 4All deployment.

Configuration is read from the same environment variables as the server
(DB_TYPE, DB_PATH, DB_URL, QUEUE_SINK, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		log, err = logger.New(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// openDB connects and migrates so imports always land on the current schema
func openDB(ctx context.Context) (*database.DB, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, flushCmd, deriveCmd, profilesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
