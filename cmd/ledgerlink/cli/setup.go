package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledgerlink/ledgerlink/internal/source/demo"
	"github.com/ledgerlink/ledgerlink/internal/source/simplefin"
)

// SetupOptions configures the setup command execution.
type SetupOptions struct {
	Source string
	Token  string
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// SetupCommand configures a data source integration. For the aggregator this
// claims the one-time setup token and stores the sealed access URL; the demo
// source needs no credentials.
func (c *LedgerCLI) SetupCommand(ctx context.Context, opts SetupOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	switch strings.ToLower(strings.TrimSpace(opts.Source)) {
	case simplefin.SourceName:
		return c.setupSimplefin(ctx, opts)
	case demo.SourceName:
		if err := c.store.UpsertIntegration(ctx, demo.SourceName, map[string]string{}); err != nil {
			fmt.Fprintf(opts.Stderr, "setup: %v\n", err)
			return 1
		}
		fmt.Fprintln(opts.Stdout, "Demo source configured. Run `ledgerlink sync` to pull sample data.")
		return 0
	default:
		fmt.Fprintf(opts.Stderr, "setup: unknown source %q (expected %s or %s)\n",
			opts.Source, simplefin.SourceName, demo.SourceName)
		return 1
	}
}

func (c *LedgerCLI) setupSimplefin(ctx context.Context, opts SetupOptions) int {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		fmt.Fprint(opts.Stdout, "Paste your SimpleFIN setup token: ")
		line, err := bufio.NewReader(opts.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(opts.Stderr, "setup: read token: %v\n", err)
			return 1
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		fmt.Fprintln(opts.Stderr, "setup: a setup token is required")
		return 1
	}

	accessURL, err := c.claimer.ClaimSetupToken(ctx, token)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "setup: %v\n", err)
		return 1
	}
	stored := accessURL
	if c.secrets != nil {
		sealed, err := c.secrets.Seal(accessURL)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "setup: %v\n", err)
			return 1
		}
		stored = sealed
	}
	options := map[string]string{simplefin.OptionAccessURL: stored}
	if err := c.store.UpsertIntegration(ctx, simplefin.SourceName, options); err != nil {
		fmt.Fprintf(opts.Stderr, "setup: %v\n", err)
		return 1
	}
	fmt.Fprintln(opts.Stdout, "SimpleFIN connected. Run `ledgerlink sync` to pull your accounts.")
	return 0
}
