// Package source defines the contract a data source must satisfy to feed the
// ledger, and hosts the concrete adapters (simplefin, csvfile, demo).
package source

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

// AccountTransaction pairs a pulled transaction with the source-native id of
// the account it belongs to. The reconciler rewrites the reference to an
// internal account id before persistence.
type AccountTransaction struct {
	SourceAccountID string
	Transaction     ledger.Transaction
}

// Provider pulls raw account and transaction records from one source.
//
// The []string return carries non-fatal warnings the source reported about
// individual records; the error return is a transport, auth, or parse failure
// for the whole batch, surfaced as a sync-level failure for that source only.
type Provider interface {
	Name() string
	CanAccounts() bool
	CanTransactions() bool
	Accounts(ctx context.Context, opts map[string]string) ([]ledger.Account, []string, error)
	Transactions(ctx context.Context, start, end time.Time, opts map[string]string) ([]AccountTransaction, []string, error)
}

var (
	// ErrUnsupported indicates the provider cannot serve the requested record
	// kind (e.g. a file source has no account listing).
	ErrUnsupported = errors.New("source: operation not supported by provider")
	// ErrAuthRequired indicates the source rejected the stored credentials;
	// the user has to re-run setup for this integration.
	ErrAuthRequired = errors.New("source: authorization rejected, re-run setup for this integration")
)
