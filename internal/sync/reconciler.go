package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/source"
)

// ReconcilerStore is the slice of the store the transaction reconciler needs.
type ReconcilerStore interface {
	TransactionsByExternalIDs(ctx context.Context, refs []ledger.ExternalIDRef) ([]ledger.Transaction, error)
	BulkUpsertTransactions(ctx context.Context, transactions []ledger.Transaction) error
}

// ReconcileCounts reports one reconciliation pass. Discovered counts every
// candidate that resolved to a known account; New is the inserted subset;
// Skipped is discovered minus new.
type ReconcileCounts struct {
	Discovered int
	New        int
	Skipped    int
}

// Reconciler deduplicates pulled transactions against the store by
// source-native id and persists the remainder.
type Reconciler struct {
	store  ReconcilerStore
	dryRun bool
}

// NewReconciler constructs a Reconciler. With dryRun set, every read and
// compute step runs identically but nothing is persisted.
func NewReconciler(store ReconcilerStore, dryRun bool) *Reconciler {
	return &Reconciler{store: store, dryRun: dryRun}
}

// Reconcile rewrites each pulled transaction to its resolved internal account,
// recomputes its fingerprint, filters out the ones the store already holds
// under the same source-native id, and upserts the rest.
//
// Pairs whose source account id is missing from the mapping are orphans from
// an account that failed to resolve this run; they are dropped before any
// counting.
func (r *Reconciler) Reconcile(ctx context.Context, sourceName string, pairs []source.AccountTransaction, accountIDs map[string]uuid.UUID) (ReconcileCounts, error) {
	candidates := make([]ledger.Transaction, 0, len(pairs))
	refs := make([]ledger.ExternalIDRef, 0, len(pairs))
	for _, pair := range pairs {
		accountID, ok := accountIDs[pair.SourceAccountID]
		if !ok {
			continue
		}
		tx := pair.Transaction
		tx.AccountID = accountID
		// The account reference may have changed, and the fingerprint hashes
		// over it; recompute before any identity check.
		ledger.ResetFingerprint(&tx)
		candidates = append(candidates, tx)
		if nativeID, ok := tx.SourceID(sourceName); ok {
			refs = append(refs, ledger.ExternalIDRef{Source: sourceName, ID: nativeID})
		}
	}

	counts := ReconcileCounts{Discovered: len(candidates)}
	if len(candidates) == 0 {
		return counts, nil
	}

	existing := make(map[string]bool)
	if len(refs) > 0 {
		stored, err := r.store.TransactionsByExternalIDs(ctx, refs)
		if err != nil {
			return ReconcileCounts{}, err
		}
		for _, tx := range stored {
			if nativeID, ok := tx.SourceID(sourceName); ok {
				existing[nativeID] = true
			}
		}
	}

	var toInsert []ledger.Transaction
	for _, tx := range candidates {
		if nativeID, ok := tx.SourceID(sourceName); ok && existing[nativeID] {
			continue
		}
		toInsert = append(toInsert, tx)
	}
	counts.New = len(toInsert)
	counts.Skipped = counts.Discovered - counts.New

	if r.dryRun || len(toInsert) == 0 {
		return counts, nil
	}
	// Upsert keyed by internal id so a repeated full-window pull converges
	// even if the pre-filter under- or over-matched.
	if err := r.store.BulkUpsertTransactions(ctx, toInsert); err != nil {
		return ReconcileCounts{}, err
	}
	return counts, nil
}
