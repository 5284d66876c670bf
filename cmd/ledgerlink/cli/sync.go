package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	syncsvc "github.com/ledgerlink/ledgerlink/internal/sync"
)

// SyncOptions configures the sync command execution.
type SyncOptions struct {
	Sources    []string
	DryRun     bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// SyncCommand runs a sync across the requested integrations.
func (c *LedgerCLI) SyncCommand(ctx context.Context, opts SyncOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	report, err := c.sync.Run(ctx, syncsvc.RunOptions{Sources: opts.Sources, DryRun: opts.DryRun})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "sync: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(syncSummaryJSON(report)); err != nil {
			fmt.Fprintf(opts.Stderr, "sync: %v\n", err)
			return 1
		}
	} else {
		renderSyncHuman(opts.Stdout, report)
	}
	if report.Failed() {
		return 1
	}
	return 0
}

type syncResultJSON struct {
	Source           string   `json:"source"`
	Window           string   `json:"window,omitempty"`
	Discovered       int      `json:"discovered"`
	New              int      `json:"new"`
	Skipped          int      `json:"skipped"`
	AccountsMatched  int      `json:"accounts_matched"`
	AccountsNew      int      `json:"accounts_new"`
	AccountsUntyped  []string `json:"accounts_untyped,omitempty"`
	SnapshotsCreated int      `json:"snapshots_created"`
	Warnings         []string `json:"warnings,omitempty"`
	Error            string   `json:"error,omitempty"`
}

func syncSummaryJSON(report syncsvc.Report) map[string]any {
	results := make([]syncResultJSON, 0, len(report.Results))
	for _, result := range report.Results {
		row := syncResultJSON{
			Source:           result.Source,
			Window:           result.Window.Kind,
			Discovered:       result.Transactions.Discovered,
			New:              result.Transactions.New,
			Skipped:          result.Transactions.Skipped,
			AccountsMatched:  result.AccountsMatched,
			AccountsNew:      result.AccountsNew,
			AccountsUntyped:  result.AccountsUntyped,
			SnapshotsCreated: result.SnapshotsCreated,
			Warnings:         result.Warnings,
		}
		if result.Err != nil {
			row.Error = result.Err.Error()
		}
		results = append(results, row)
	}
	return map[string]any{"dry_run": report.DryRun, "results": results}
}

func renderSyncHuman(out io.Writer, report syncsvc.Report) {
	if report.DryRun {
		fmt.Fprintln(out, "Sync (dry run)")
	} else {
		fmt.Fprintln(out, "Sync")
	}
	for _, result := range report.Results {
		if result.Err != nil {
			fmt.Fprintf(out, " - %s: FAILED: %v\n", result.Source, result.Err)
			continue
		}
		fmt.Fprintf(out, " - %s (%s window): %d discovered, %d new, %d skipped\n",
			result.Source, result.Window.Kind,
			result.Transactions.Discovered, result.Transactions.New, result.Transactions.Skipped)
		if result.AccountsNew > 0 {
			fmt.Fprintf(out, "   %d new account(s)\n", result.AccountsNew)
		}
		if len(result.AccountsUntyped) > 0 {
			fmt.Fprintf(out, "   needs a type: %s\n", strings.Join(result.AccountsUntyped, ", "))
		}
		if result.SnapshotsCreated > 0 {
			fmt.Fprintf(out, "   %d balance snapshot(s) recorded\n", result.SnapshotsCreated)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(out, "   warning: %s\n", warning)
		}
	}
}
