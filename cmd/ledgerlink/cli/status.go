package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// StatusOptions configures the status command execution.
type StatusOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// StatusCommand prints the ledger summary.
func (c *LedgerCLI) StatusCommand(ctx context.Context, opts StatusOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	summary, err := c.status.Summary(ctx)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "status: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			fmt.Fprintf(opts.Stderr, "status: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(opts.Stdout, "Ledger: %d transaction(s), %d snapshot(s)\n",
		summary.Stats.TransactionCount, summary.Stats.SnapshotCount)
	if summary.Stats.EarliestDate != nil && summary.Stats.LatestDate != nil {
		fmt.Fprintf(opts.Stdout, "Dates: %s to %s\n",
			summary.Stats.EarliestDate.Format("2006-01-02"),
			summary.Stats.LatestDate.Format("2006-01-02"))
	}
	if len(summary.Integrations) > 0 {
		fmt.Fprintf(opts.Stdout, "Integrations: %s\n", strings.Join(summary.Integrations, ", "))
	}

	w := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tTYPE\tCURRENCY\tBALANCE")
	for _, account := range summary.Accounts {
		name := account.Name
		if account.Nickname != "" {
			name = account.Nickname
		}
		balance := "-"
		if account.Balance != nil {
			balance = account.Balance.StringFixed(2)
		}
		accountType := account.AccountType
		if accountType == "" {
			accountType = "?"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, accountType, account.Currency, balance)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(opts.Stderr, "status: %v\n", err)
		return 1
	}
	return 0
}
