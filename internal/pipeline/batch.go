package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/skiptrace-cli/internal/model"
)

// BatchSummary aggregates one ProcessBatch run.
type BatchSummary struct {
	Processed int
	Failed    int
	Results   []*model.RecordResult
}

// ProcessBatch fans records out with one task per record, bounded by
// concurrency. A failure inside one record is logged and counted, never
// aborting siblings; there is no cross-record ordering guarantee.
func (c *Coordinator) ProcessBatch(ctx context.Context, records []model.PipelineRecord, concurrency int) *BatchSummary {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu      sync.Mutex
		results []*model.RecordResult
		failed  atomic.Int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			result, err := c.ProcessRecord(ctx, rec)
			if err != nil {
				failed.Add(1)
				zap.L().Error("record failed",
					zap.String("component", "pipeline"),
					zap.String("record_id", rec.ID),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		zap.L().Error("batch wait", zap.String("component", "pipeline"), zap.Error(err))
	}

	summary := &BatchSummary{
		Processed: len(results),
		Failed:    int(failed.Load()),
		Results:   results,
	}
	zap.L().Info("batch complete",
		zap.String("component", "pipeline"),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
	)
	return summary
}
