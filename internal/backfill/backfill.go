// Package backfill reconstructs historical daily balance snapshots by
// projecting an account's current balance backward through its transactions.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

// Store is the slice of the persistence port the projector needs.
type Store interface {
	Accounts(ctx context.Context) ([]ledger.Account, error)
	AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error)
	BalanceSnapshots(ctx context.Context, accountID *uuid.UUID, day *time.Time) ([]ledger.BalanceSnapshot, error)
	AddBalance(ctx context.Context, snapshot ledger.BalanceSnapshot) error
}

// AccountResult reports the projection outcome for one account.
type AccountResult struct {
	Account  string
	Created  int
	Skipped  int
	Warnings []string
}

// Result reports one backfill run.
type Result struct {
	DryRun   bool
	Accounts []AccountResult
}

// Projector synthesizes daily balance history from current balances and the
// transaction ledger.
type Projector struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewProjector constructs a Projector.
func NewProjector(store Store, log *slog.Logger) *Projector {
	return &Projector{store: store, log: log, now: time.Now}
}

// WithNow overrides the clock for testing.
func (p *Projector) WithNow(now func() time.Time) *Projector {
	if now != nil {
		p.now = now
	}
	return p
}

// Options configures one backfill run.
type Options struct {
	// AccountID restricts the run to one account; nil means every account.
	AccountID *uuid.UUID
	// Days is how far back from today to project. Zero projects only today.
	Days int
	// DryRun computes created/skipped counts identically but persists nothing.
	DryRun bool
}

// Run projects balances for the selected accounts. Accounts with no current
// balance are skipped with a warning rather than failing the run, except when
// a single account was requested explicitly.
func (p *Projector) Run(ctx context.Context, opts Options) (Result, error) {
	var accounts []ledger.Account
	if opts.AccountID != nil {
		account, err := p.store.AccountByID(ctx, *opts.AccountID)
		if err != nil {
			return Result{}, fmt.Errorf("backfill: resolve account: %w", err)
		}
		if account.Balance == nil {
			return Result{}, fmt.Errorf("backfill: %s: %w", account.Name, ledger.ErrNoCurrentBalance)
		}
		accounts = []ledger.Account{account}
	} else {
		all, err := p.store.Accounts(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("backfill: list accounts: %w", err)
		}
		accounts = all
	}

	result := Result{DryRun: opts.DryRun}
	for _, account := range accounts {
		if account.Balance == nil {
			result.Accounts = append(result.Accounts, AccountResult{
				Account:  account.Name,
				Warnings: []string{"no current balance, skipping"},
			})
			continue
		}
		accountResult, err := p.projectAccount(ctx, account, opts)
		if err != nil {
			return Result{}, err
		}
		result.Accounts = append(result.Accounts, accountResult)
		p.log.Info("backfill projected",
			"account", account.Name,
			"created", accountResult.Created,
			"skipped", accountResult.Skipped,
			"dry_run", opts.DryRun)
	}
	return result, nil
}

// projectAccount walks each day backward from today, computing
// balance(d) = current - sum(amount of transactions dated after d).
func (p *Projector) projectAccount(ctx context.Context, account ledger.Account, opts Options) (AccountResult, error) {
	result := AccountResult{Account: account.Name}

	transactions, err := p.store.TransactionsByAccount(ctx, account.ID)
	if err != nil {
		return AccountResult{}, fmt.Errorf("backfill: load transactions: %w", err)
	}
	snapshots, err := p.store.BalanceSnapshots(ctx, &account.ID, nil)
	if err != nil {
		return AccountResult{}, fmt.Errorf("backfill: load snapshots: %w", err)
	}
	byDay := make(map[time.Time][]ledger.BalanceSnapshot, len(snapshots))
	for _, snapshot := range snapshots {
		day := ledger.DateOnly(snapshot.SnapshotTime)
		byDay[day] = append(byDay[day], snapshot)
	}

	now := p.now().UTC()
	end := ledger.DateOnly(now)
	start := end.AddDate(0, 0, -opts.Days)
	for day := end; !day.Before(start); day = day.AddDate(0, 0, -1) {
		balance := projectedBalance(*account.Balance, transactions, day)
		if hasCloseSnapshot(byDay[day], balance) {
			result.Skipped++
			continue
		}
		result.Created++
		if opts.DryRun {
			continue
		}
		snapshot := ledger.BalanceSnapshot{
			ID:           uuid.New(),
			AccountID:    account.ID,
			Balance:      balance,
			SnapshotTime: day,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := p.store.AddBalance(ctx, snapshot); err != nil {
			return AccountResult{}, fmt.Errorf("backfill: add snapshot: %w", err)
		}
		byDay[day] = append(byDay[day], snapshot)
	}
	return result, nil
}

// projectedBalance subtracts every transaction dated strictly after day from
// the current balance. An account with no transactions projects flat.
func projectedBalance(current decimal.Decimal, transactions []ledger.Transaction, day time.Time) decimal.Decimal {
	balance := current
	for _, tx := range transactions {
		if ledger.DateOnly(tx.TransactionDate).After(day) {
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance
}

func hasCloseSnapshot(existing []ledger.BalanceSnapshot, balance decimal.Decimal) bool {
	for _, snapshot := range existing {
		if snapshot.Balance.Sub(balance).Abs().LessThan(ledger.SnapshotTolerance) {
			return true
		}
	}
	return false
}
