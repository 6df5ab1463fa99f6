package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fourall/internal/backup"
)

var (
	exportOutput string
	importInput  string
	importClear  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export profiles, onboarding progress, PINs and queued actions to JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JSON backup",
	Long: `Import a JSON backup produced by export.

Entries overwrite existing keys and actions already present are skipped.
With --clear every existing record is deleted first.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	importCmd.Flags().StringVarP(&importInput, "input", "i", "", "Input file path")
	importCmd.Flags().BoolVar(&importClear, "clear", false, "Clear existing data before import (WARNING: destructive)")
	_ = importCmd.MarkFlagRequired("input")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	outputPath := exportOutput
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	data, err := backup.NewService(db, log).ExportToWriter(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries and %d actions to %s\n", len(data.Entries), len(data.Actions), outputPath)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f, err := os.Open(importInput)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := backup.NewService(db, log)

	if importClear {
		fmt.Fprint(cmd.OutOrStdout(), "WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
			return nil
		}
		if err := svc.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear database: %w", err)
		}
		log.Info("existing data cleared")
	}

	counts, err := svc.ImportFromReader(ctx, f)
	if err != nil {
		return err
	}
	log.Debug("import finished", zap.String("file", importInput))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries and %d actions (%d actions already present)\n",
		counts.Entries, counts.Actions, counts.SkippedActions)
	return nil
}
