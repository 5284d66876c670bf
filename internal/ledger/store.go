package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence port consumed by the reconciliation services.
//
// Implementations own the concurrency discipline of the underlying handle; a
// single pooled connection with serialized writes is assumed, never
// multi-writer concurrency (callers run one logical operation at a time).
type Store interface {
	Accounts(ctx context.Context) ([]Account, error)
	AccountByID(ctx context.Context, id uuid.UUID) (Account, error)
	// BulkUpsertAccounts inserts or updates accounts keyed by internal id.
	// Locally-set fields (account_type, nickname) survive conflicts when the
	// incoming value is absent.
	BulkUpsertAccounts(ctx context.Context, accounts []Account) ([]Account, error)

	TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]Transaction, error)
	// TransactionsByExternalIDs is a batch OR-lookup over external_ids entries.
	TransactionsByExternalIDs(ctx context.Context, refs []ExternalIDRef) ([]Transaction, error)
	// TransactionCountsByFingerprint returns how many stored transactions carry
	// each fingerprint. Fingerprints with no match are absent from the map.
	TransactionCountsByFingerprint(ctx context.Context, fingerprints []string) (map[string]int, error)
	// MaxTransactionDate reports the latest transaction_date across all
	// accounts; ok is false when the ledger holds no transactions.
	MaxTransactionDate(ctx context.Context) (date time.Time, ok bool, err error)
	// BulkUpsertTransactions inserts or updates transactions keyed by internal
	// id, so repeated full-window pulls converge instead of duplicating rows.
	BulkUpsertTransactions(ctx context.Context, transactions []Transaction) error

	AddBalance(ctx context.Context, snapshot BalanceSnapshot) error
	// BalanceSnapshots filters by account and/or calendar day when non-nil.
	BalanceSnapshots(ctx context.Context, accountID *uuid.UUID, day *time.Time) ([]BalanceSnapshot, error)

	Integrations(ctx context.Context) ([]Integration, error)
	UpsertIntegration(ctx context.Context, name string, options map[string]string) error
}
