package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ledgerlink/ledgerlink/internal/jobs"
	syncsvc "github.com/ledgerlink/ledgerlink/internal/sync"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LedgerSyncJob runs queued sync tasks against the sync service.
type LedgerSyncJob struct {
	service *syncsvc.Service
	logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerSyncJob constructs a LedgerSyncJob.
func NewLedgerSyncJob(service *syncsvc.Service, logger *slog.Logger) *LedgerSyncJob {
	return &LedgerSyncJob{service: service, logger: logger}
}

// Handle processes one TaskTypeLedgerSync task. Per-source failures are
// logged, not retried; only run-level failures are returned to Asynq.
func (j *LedgerSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LedgerSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTypeLedgerSync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	report, err := j.service.Run(ctx, syncsvc.RunOptions{Sources: payload.Sources, DryRun: payload.DryRun})
	if err != nil {
		resultErr = err
		return err
	}
	for _, result := range report.Results {
		if result.Err != nil {
			j.logger.Warn("scheduled sync: source failed",
				slog.String("source", result.Source),
				slog.Any("error", result.Err))
		}
	}
	return nil
}

func (j *LedgerSyncJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
