// Package cli implements the ledgerlink subcommands. Commands are methods
// with injectable streams and integer exit codes so tests can drive them
// without a process boundary.
package cli

import (
	"context"
	"log/slog"

	"github.com/ledgerlink/ledgerlink/internal/backfill"
	"github.com/ledgerlink/ledgerlink/internal/importer"
	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/secrets"
	"github.com/ledgerlink/ledgerlink/internal/source/simplefin"
	"github.com/ledgerlink/ledgerlink/internal/status"
	syncsvc "github.com/ledgerlink/ledgerlink/internal/sync"
)

// Querier is the raw read-only query surface the query command uses.
type Querier interface {
	Query(ctx context.Context, sql string) (ledger.QueryResult, error)
}

// TokenClaimer exchanges a setup token for an access URL during setup.
type TokenClaimer interface {
	ClaimSetupToken(ctx context.Context, token string) (string, error)
}

// LedgerCLI bundles the services the subcommands run against.
type LedgerCLI struct {
	store    ledger.Store
	sync     *syncsvc.Service
	importer *importer.Service
	backfill *backfill.Projector
	status   *status.Service
	querier  Querier
	claimer  TokenClaimer
	secrets  *secrets.Box
	logger   *slog.Logger
}

// Config collects the CLI dependencies.
type Config struct {
	Store    ledger.Store
	Sync     *syncsvc.Service
	Importer *importer.Service
	Backfill *backfill.Projector
	Status   *status.Service
	Querier  Querier
	Claimer  TokenClaimer
	Secrets  *secrets.Box
	Logger   *slog.Logger
}

// New constructs a LedgerCLI.
func New(cfg Config) *LedgerCLI {
	claimer := cfg.Claimer
	if claimer == nil {
		claimer = simplefin.NewClient()
	}
	return &LedgerCLI{
		store:    cfg.Store,
		sync:     cfg.Sync,
		importer: cfg.Importer,
		backfill: cfg.Backfill,
		status:   cfg.Status,
		querier:  cfg.Querier,
		claimer:  claimer,
		secrets:  cfg.Secrets,
		logger:   cfg.Logger,
	}
}
