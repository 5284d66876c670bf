package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLedgerSync is the task type for a full ledger sync run.
	TaskTypeLedgerSync = "ledger:sync"
)

// LedgerSyncPayload selects what a queued sync run covers. Empty Sources
// means every configured integration.
type LedgerSyncPayload struct {
	Sources []string `json:"sources,omitempty"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// NewLedgerSyncTask constructs an Asynq task for a sync run.
func NewLedgerSyncTask(payload LedgerSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLedgerSync, data), nil
}
