package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/skiptrace-cli/internal/model"
)

var processLimit int

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process queued pipeline records through search and validation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("process"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		limit := processLimit
		if limit <= 0 {
			limit = cfg.Batch.RecordLimit
		}
		records, err := e.Store.ListRecordsByStage(ctx, model.StageSentToSearch, limit)
		if err != nil {
			return eris.Wrap(err, "list queued records")
		}
		if len(records) == 0 {
			zap.L().Info("no queued records found")
			return nil
		}

		zap.L().Info("processing batch",
			zap.Int("records", len(records)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrentRecords),
		)

		summary := e.Coordinator.ProcessBatch(ctx, records, cfg.Batch.MaxConcurrentRecords)
		for _, result := range summary.Results {
			for _, skipped := range result.PhonesSkipped {
				zap.L().Warn("phone skipped",
					zap.String("record_id", result.RecordID),
					zap.String("number", skipped.Number),
					zap.String("reason", skipped.Reason),
				)
			}
		}
		if summary.Failed > 0 {
			return eris.Errorf("%d of %d records failed", summary.Failed, len(records))
		}
		return nil
	},
}

func init() {
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "max number of records to process (0 = config default)")
	rootCmd.AddCommand(processCmd)
}
