// Package sync orchestrates pulling accounts and transactions from configured
// sources and reconciling them into the ledger.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/source"
)

// CredentialOpener unseals stored integration option values. Values that were
// never sealed pass through unchanged.
type CredentialOpener interface {
	Open(value string) (string, error)
}

// SourceResult reports one source's sync outcome. Err carries a whole-source
// failure (transport, auth, persistence); record-level problems appear only
// as warnings or as silently absent records.
type SourceResult struct {
	Source           string
	Window           Window
	AccountsMatched  int
	AccountsNew      int
	AccountsUntyped  []string
	Transactions     ReconcileCounts
	SnapshotsCreated int
	Warnings         []string
	Err              error
}

// Report is the outcome of one sync run across all requested sources.
type Report struct {
	DryRun  bool
	Results []SourceResult
}

// Failed reports whether any source failed outright.
func (r Report) Failed() bool {
	for _, result := range r.Results {
		if result.Err != nil {
			return true
		}
	}
	return false
}

// Service runs the full sync cycle. Sources are processed strictly
// sequentially; a failure in one is isolated and the run proceeds to the next.
type Service struct {
	store     ledger.Store
	providers map[string]source.Provider
	opener    CredentialOpener
	planner   *WindowPlanner
	log       *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service over the given provider registry.
func NewService(store ledger.Store, providers map[string]source.Provider, opener CredentialOpener, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		providers: providers,
		opener:    opener,
		planner:   NewWindowPlanner(store),
		log:       log,
		now:       time.Now,
	}
}

// WithNow overrides the clock for testing, propagating to the planner.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.planner.WithNow(now)
	}
	return s
}

// RunOptions selects what a sync run covers.
type RunOptions struct {
	// Sources restricts the run to the named integrations; empty means all
	// configured integrations.
	Sources []string
	// DryRun computes every count exactly as a live run would but suppresses
	// all writes.
	DryRun bool
}

// Run syncs each requested integration in configuration order.
func (s *Service) Run(ctx context.Context, opts RunOptions) (Report, error) {
	integrations, err := s.store.Integrations(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("sync: list integrations: %w", err)
	}
	selected, err := selectIntegrations(integrations, opts.Sources)
	if err != nil {
		return Report{}, err
	}

	report := Report{DryRun: opts.DryRun}
	for _, integration := range selected {
		result := s.syncSource(ctx, integration, opts.DryRun)
		if result.Err != nil {
			s.log.Error("source sync failed", "source", integration.Name, "error", result.Err)
		} else {
			s.log.Info("source synced",
				"source", integration.Name,
				"window", result.Window.Kind,
				"discovered", result.Transactions.Discovered,
				"new", result.Transactions.New,
				"skipped", result.Transactions.Skipped,
				"dry_run", opts.DryRun)
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}

func selectIntegrations(configured []ledger.Integration, requested []string) ([]ledger.Integration, error) {
	if len(requested) == 0 {
		return configured, nil
	}
	byName := make(map[string]ledger.Integration, len(configured))
	for _, integration := range configured {
		byName[integration.Name] = integration
	}
	selected := make([]ledger.Integration, 0, len(requested))
	for _, name := range requested {
		integration, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("sync: %w: %s", ledger.ErrIntegrationNotFound, name)
		}
		selected = append(selected, integration)
	}
	return selected, nil
}

func (s *Service) syncSource(ctx context.Context, integration ledger.Integration, dryRun bool) SourceResult {
	result := SourceResult{Source: integration.Name}

	provider, ok := s.providers[integration.Name]
	if !ok {
		result.Err = fmt.Errorf("sync: no provider registered for source %q", integration.Name)
		return result
	}
	if !provider.CanAccounts() && !provider.CanTransactions() {
		result.Err = fmt.Errorf("sync: %s: %w", integration.Name, source.ErrUnsupported)
		return result
	}
	options, err := s.openOptions(integration.Options)
	if err != nil {
		result.Err = fmt.Errorf("sync: unseal credentials for %s: %w", integration.Name, err)
		return result
	}
	now := s.now().UTC()

	var match MatchResult
	if provider.CanAccounts() {
		discovered, warnings, err := provider.Accounts(ctx, options)
		if err != nil {
			result.Err = err
			return result
		}
		result.Warnings = append(result.Warnings, warnings...)

		stored, err := s.store.Accounts(ctx)
		if err != nil {
			result.Err = err
			return result
		}
		match = MatchAccounts(integration.Name, discovered, stored, now)
		result.AccountsMatched = countMatched(match, stored, integration.Name)
		result.AccountsNew = len(match.Merged) - result.AccountsMatched
		for _, account := range match.Untyped {
			result.AccountsUntyped = append(result.AccountsUntyped, account.Name)
		}
		if !dryRun && len(match.Merged) > 0 {
			if _, err := s.store.BulkUpsertAccounts(ctx, match.Merged); err != nil {
				result.Err = fmt.Errorf("sync: upsert accounts: %w", err)
				return result
			}
		}
		created, err := s.recordBalances(ctx, match.Merged, now, dryRun)
		if err != nil {
			result.Err = err
			return result
		}
		result.SnapshotsCreated = created
	}

	if provider.CanTransactions() {
		window, err := s.planner.Plan(ctx)
		if err != nil {
			result.Err = fmt.Errorf("sync: plan window: %w", err)
			return result
		}
		result.Window = window

		pairs, warnings, err := provider.Transactions(ctx, window.Start, window.End, options)
		if err != nil {
			result.Err = err
			return result
		}
		result.Warnings = append(result.Warnings, warnings...)

		reconciler := NewReconciler(s.store, dryRun)
		counts, err := reconciler.Reconcile(ctx, integration.Name, pairs, match.IDs)
		if err != nil {
			result.Err = fmt.Errorf("sync: reconcile transactions: %w", err)
			return result
		}
		result.Transactions = counts
	}
	return result
}

func countMatched(match MatchResult, stored []ledger.Account, sourceName string) int {
	known := make(map[string]bool, len(stored))
	for _, account := range stored {
		if id, ok := account.SourceID(sourceName); ok {
			known[id] = true
		}
	}
	matched := 0
	for _, account := range match.Merged {
		if id, ok := account.SourceID(sourceName); ok && known[id] {
			matched++
		}
	}
	return matched
}

func (s *Service) openOptions(options map[string]string) (map[string]string, error) {
	if s.opener == nil || len(options) == 0 {
		return options, nil
	}
	opened := make(map[string]string, len(options))
	for key, value := range options {
		plain, err := s.opener.Open(value)
		if err != nil {
			return nil, err
		}
		opened[key] = plain
	}
	return opened, nil
}

// recordBalances snapshots each synced account's reported balance, at most
// one materially distinct snapshot per account and day.
func (s *Service) recordBalances(ctx context.Context, accounts []ledger.Account, now time.Time, dryRun bool) (int, error) {
	created := 0
	day := ledger.DateOnly(now)
	for _, account := range accounts {
		if account.Balance == nil {
			continue
		}
		existing, err := s.store.BalanceSnapshots(ctx, &account.ID, &day)
		if err != nil {
			return created, fmt.Errorf("sync: load snapshots: %w", err)
		}
		if hasCloseSnapshot(existing, *account.Balance) {
			continue
		}
		created++
		if dryRun {
			continue
		}
		snapshot := ledger.BalanceSnapshot{
			ID:           uuid.New(),
			AccountID:    account.ID,
			Balance:      *account.Balance,
			SnapshotTime: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.AddBalance(ctx, snapshot); err != nil {
			return created, fmt.Errorf("sync: add balance snapshot: %w", err)
		}
	}
	return created, nil
}

func hasCloseSnapshot(existing []ledger.BalanceSnapshot, balance decimal.Decimal) bool {
	for _, snapshot := range existing {
		if snapshot.Balance.Sub(balance).Abs().LessThan(ledger.SnapshotTolerance) {
			return true
		}
	}
	return false
}
