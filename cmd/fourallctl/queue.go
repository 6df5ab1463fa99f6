package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fourall/internal/queue"
	"fourall/internal/repository"
)

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Deliver every queued action once using the configured sink",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		sink, closeSink, err := queue.NewSink(cfg.Queue, log)
		if err != nil {
			return err
		}
		defer closeSink()

		q := queue.New(repository.NewQueueRepository(db), sink, cfg.Queue.MaxRetries, log)
		res, err := q.Flush(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "delivered=%d retried=%d failed=%d\n", res.Delivered, res.Retried, res.Failed)
		return nil
	},
}
