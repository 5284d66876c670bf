// Package importer reconciles spreadsheet-sourced transactions into one
// explicit target account, using content fingerprints as the only identity.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/source/csvfile"
)

// Store is the slice of the persistence port the importer needs.
type Store interface {
	AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	TransactionCountsByFingerprint(ctx context.Context, fingerprints []string) (map[string]int, error)
	BulkUpsertTransactions(ctx context.Context, transactions []ledger.Transaction) error
}

// Result reports one import run. Discovered counts every parseable row;
// Imported is the inserted subset; Skipped is discovered minus imported.
type Result struct {
	Account    string
	Discovered int
	Imported   int
	Skipped    int
	Warnings   []string
}

// Service imports spreadsheet files.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Options configures one import run.
type Options struct {
	AccountID uuid.UUID
	File      csvfile.Options
	DryRun    bool
}

// Import parses the file and reconciles its rows into the target account.
//
// Rows have no source-native id, so identity is fingerprint-only: a row whose
// fingerprint the store already holds is skipped, and identical rows within
// one file collapse into a single insert. An unknown account id aborts the
// whole import.
func (s *Service) Import(ctx context.Context, opts Options) (Result, error) {
	account, err := s.store.AccountByID(ctx, opts.AccountID)
	if err != nil {
		return Result{}, fmt.Errorf("importer: resolve account: %w", err)
	}

	rows, warnings, err := csvfile.Parse(opts.File)
	if err != nil {
		return Result{}, err
	}

	result := Result{Account: account.Name, Discovered: len(rows), Warnings: warnings}
	if len(rows) == 0 {
		return result, nil
	}

	candidates := make([]ledger.Transaction, 0, len(rows))
	fingerprints := make([]string, 0, len(rows))
	for _, tx := range rows {
		tx.AccountID = account.ID
		ledger.ResetFingerprint(&tx)
		candidates = append(candidates, tx)
		fp, _ := tx.Fingerprint()
		fingerprints = append(fingerprints, fp)
	}

	counts, err := s.store.TransactionCountsByFingerprint(ctx, fingerprints)
	if err != nil {
		return Result{}, fmt.Errorf("importer: fingerprint lookup: %w", err)
	}

	seen := make(map[string]bool, len(candidates))
	var toInsert []ledger.Transaction
	for _, tx := range candidates {
		fp, _ := tx.Fingerprint()
		if counts[fp] > 0 || seen[fp] {
			continue
		}
		seen[fp] = true
		toInsert = append(toInsert, tx)
	}
	result.Imported = len(toInsert)
	result.Skipped = result.Discovered - result.Imported

	if opts.DryRun || len(toInsert) == 0 {
		return result, nil
	}
	if err := s.store.BulkUpsertTransactions(ctx, toInsert); err != nil {
		return Result{}, fmt.Errorf("importer: persist transactions: %w", err)
	}
	s.log.Info("import finished",
		"account", account.Name,
		"discovered", result.Discovered,
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}
