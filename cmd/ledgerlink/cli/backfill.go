package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/backfill"
)

// BackfillOptions configures the backfill command execution.
type BackfillOptions struct {
	Account    string
	Days       int
	DryRun     bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// BackfillCommand projects historical balance snapshots.
func (c *LedgerCLI) BackfillCommand(ctx context.Context, opts BackfillOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Days < 0 {
		fmt.Fprintln(opts.Stderr, "backfill: --days must not be negative")
		return 1
	}
	runOpts := backfill.Options{Days: opts.Days, DryRun: opts.DryRun}
	if opts.Account != "" {
		id, err := uuid.Parse(opts.Account)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "backfill: invalid --account %q (expected a UUID)\n", opts.Account)
			return 1
		}
		runOpts.AccountID = &id
	}
	result, err := c.backfill.Run(ctx, runOpts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "backfill: %v\n", err)
		return 1
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			fmt.Fprintf(opts.Stderr, "backfill: %v\n", err)
			return 1
		}
		return 0
	}
	if result.DryRun {
		fmt.Fprintf(opts.Stdout, "Backfill over %d day(s) (dry run)\n", opts.Days)
	} else {
		fmt.Fprintf(opts.Stdout, "Backfill over %d day(s)\n", opts.Days)
	}
	for _, account := range result.Accounts {
		fmt.Fprintf(opts.Stdout, " - %s: %d created, %d skipped\n", account.Account, account.Created, account.Skipped)
		for _, warning := range account.Warnings {
			fmt.Fprintf(opts.Stdout, "   warning: %s\n", warning)
		}
	}
	return 0
}
