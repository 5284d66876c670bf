package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
)

func TestNewLedgerSyncTask(t *testing.T) {
	task, err := NewLedgerSyncTask(LedgerSyncPayload{Sources: []string{"simplefin"}, DryRun: true})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskTypeLedgerSync {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskTypeLedgerSync)
	}

	var payload LedgerSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Sources) != 1 || payload.Sources[0] != "simplefin" {
		t.Fatalf("sources = %v", payload.Sources)
	}
	if !payload.DryRun {
		t.Fatal("dry run flag lost in the round trip")
	}
}

func TestLedgerSyncTaskEmptyPayload(t *testing.T) {
	task, err := NewLedgerSyncTask(LedgerSyncPayload{})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	var payload LedgerSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Sources != nil || payload.DryRun {
		t.Fatalf("payload = %+v, want zero value", payload)
	}
}

func TestLedgerSyncJobBadPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewLedgerSyncJob(nil, logger)

	task := asynq.NewTask(TaskTypeLedgerSync, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry so the poison task is dropped", err)
	}
}
