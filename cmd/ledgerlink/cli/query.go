package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// QueryOptions configures the query command execution.
type QueryOptions struct {
	SQL        string
	JSONOutput bool
	CSVOutput  bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// QueryCommand runs a read-only SQL statement against the ledger.
func (c *LedgerCLI) QueryCommand(ctx context.Context, opts QueryOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	sql := strings.TrimSpace(opts.SQL)
	if sql == "" {
		fmt.Fprintln(opts.Stderr, "query: a SQL statement is required")
		return 1
	}
	lowered := strings.ToLower(sql)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		fmt.Fprintln(opts.Stderr, "query: only SELECT statements are allowed")
		return 1
	}
	result, err := c.querier.Query(ctx, sql)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "query: %v\n", err)
		return 1
	}

	if opts.CSVOutput {
		w := csv.NewWriter(opts.Stdout)
		if err := w.Write(result.Columns); err != nil {
			fmt.Fprintf(opts.Stderr, "query: %v\n", err)
			return 1
		}
		for _, row := range result.Rows {
			cells := make([]string, len(row))
			for i, value := range row {
				if value != nil {
					cells[i] = fmt.Sprintf("%v", value)
				}
			}
			if err := w.Write(cells); err != nil {
				fmt.Fprintf(opts.Stderr, "query: %v\n", err)
				return 1
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			fmt.Fprintf(opts.Stderr, "query: %v\n", err)
			return 1
		}
		return 0
	}

	if opts.JSONOutput {
		rows := make([]map[string]any, 0, len(result.Rows))
		for _, row := range result.Rows {
			obj := make(map[string]any, len(result.Columns))
			for i, column := range result.Columns {
				if i < len(row) {
					obj[column] = row[i]
				}
			}
			rows = append(rows, obj)
		}
		if err := json.NewEncoder(opts.Stdout).Encode(rows); err != nil {
			fmt.Fprintf(opts.Stderr, "query: %v\n", err)
			return 1
		}
		return 0
	}

	w := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			if value == nil {
				cells[i] = ""
				continue
			}
			cells[i] = fmt.Sprintf("%v", value)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(opts.Stderr, "query: %v\n", err)
		return 1
	}
	fmt.Fprintf(opts.Stdout, "(%d row(s))\n", len(result.Rows))
	return 0
}
