package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/importer"
	"github.com/ledgerlink/ledgerlink/internal/source/csvfile"
)

// ImportOptions configures the import command execution.
type ImportOptions struct {
	Account    string
	Path       string
	DateCol    string
	DescCol    string
	AmountCol  string
	DebitCol   string
	CreditCol  string
	DateFormat string
	FlipSigns  bool
	DryRun     bool
	Preview    bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

const previewRows = 10

// ImportCommand imports a spreadsheet into one account. Columns left
// unspecified are auto-detected from the file header.
func (c *LedgerCLI) ImportCommand(ctx context.Context, opts ImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	accountID, err := uuid.Parse(opts.Account)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: invalid --account %q (expected a UUID)\n", opts.Account)
		return 1
	}
	if opts.Path == "" {
		fmt.Fprintln(opts.Stderr, "import: --file is required")
		return 1
	}

	columns := csvfile.ColumnMapping{
		Date:        opts.DateCol,
		Description: opts.DescCol,
		Amount:      opts.AmountCol,
		Debit:       opts.DebitCol,
		Credit:      opts.CreditCol,
	}
	if columns.Date == "" && columns.Amount == "" && columns.Debit == "" && columns.Credit == "" {
		detected, err := csvfile.DetectColumns(opts.Path)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "import: %v\n", err)
			return 1
		}
		if columns.Description == "" {
			columns.Description = detected.Description
		}
		columns.Date = detected.Date
		columns.Amount = detected.Amount
		columns.Debit = detected.Debit
		columns.Credit = detected.Credit
		columns.PostedDate = detected.PostedDate
	}

	fileOpts := csvfile.Options{
		Path:       opts.Path,
		Columns:    columns,
		DateFormat: opts.DateFormat,
		FlipSigns:  opts.FlipSigns,
	}
	if opts.Preview {
		return c.previewImport(fileOpts, opts)
	}

	result, err := c.importer.Import(ctx, importer.Options{
		AccountID: accountID,
		DryRun:    opts.DryRun,
		File:      fileOpts,
	})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			fmt.Fprintf(opts.Stderr, "import: %v\n", err)
			return 1
		}
		return 0
	}
	if opts.DryRun {
		fmt.Fprintf(opts.Stdout, "Import into %s (dry run)\n", result.Account)
	} else {
		fmt.Fprintf(opts.Stdout, "Import into %s\n", result.Account)
	}
	fmt.Fprintf(opts.Stdout, " %d discovered, %d imported, %d skipped\n",
		result.Discovered, result.Imported, result.Skipped)
	for _, warning := range result.Warnings {
		fmt.Fprintf(opts.Stdout, " warning: %s\n", warning)
	}
	return 0
}

// previewImport shows the first parsed rows without touching the ledger.
func (c *LedgerCLI) previewImport(fileOpts csvfile.Options, opts ImportOptions) int {
	rows, warnings, err := csvfile.Preview(fileOpts, previewRows)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(rows); err != nil {
			fmt.Fprintf(opts.Stderr, "import: %v\n", err)
			return 1
		}
		return 0
	}
	w := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tAMOUNT\tDESCRIPTION")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			row.TransactionDate.Format("2006-01-02"), row.Amount.StringFixed(2), row.Description)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}
	for _, warning := range warnings {
		fmt.Fprintf(opts.Stdout, " warning: %s\n", warning)
	}
	return 0
}
