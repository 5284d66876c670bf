package sync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/source"
)

func coffeePair() source.AccountTransaction {
	return source.AccountTransaction{
		SourceAccountID: "a1",
		Transaction: ledger.Transaction{
			ID:              uuid.New(),
			ExternalIDs:     map[string]string{"simplefin": "t1"},
			Amount:          decimal.RequireFromString("-12.34"),
			Description:     "Coffee Shop",
			TransactionDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			PostedDate:      time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestReconcileFirstThenRepeat(t *testing.T) {
	store := newMemStore()
	accountID := uuid.New()
	mapping := map[string]uuid.UUID{"a1": accountID}

	counts, err := NewReconciler(store, false).
		Reconcile(context.Background(), "simplefin", []source.AccountTransaction{coffeePair()}, mapping)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if counts.Discovered != 1 || counts.New != 1 || counts.Skipped != 0 {
		t.Fatalf("first run counts = %+v, want 1/1/0", counts)
	}
	if len(store.transactions) != 1 {
		t.Fatalf("stored = %d, want 1", len(store.transactions))
	}
	for _, tx := range store.transactions {
		if tx.AccountID != accountID {
			t.Fatal("account reference must be rewritten before persistence")
		}
		fp, ok := tx.Fingerprint()
		if !ok {
			t.Fatal("persisted transaction must carry a fingerprint")
		}
		want := ledger.Fingerprint(accountID, tx.TransactionDate, tx.Amount, tx.Description)
		if fp != want {
			t.Fatalf("fingerprint = %s, want recomputed %s", fp, want)
		}
	}

	counts, err = NewReconciler(store, false).
		Reconcile(context.Background(), "simplefin", []source.AccountTransaction{coffeePair()}, mapping)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if counts.Discovered != 1 || counts.New != 0 || counts.Skipped != 1 {
		t.Fatalf("second run counts = %+v, want 1/0/1", counts)
	}
	if len(store.transactions) != 1 {
		t.Fatalf("stored after repeat = %d, want 1", len(store.transactions))
	}
}

func TestReconcileDropsOrphans(t *testing.T) {
	store := newMemStore()
	pair := coffeePair()
	pair.SourceAccountID = "unknown"

	counts, err := NewReconciler(store, false).
		Reconcile(context.Background(), "simplefin", []source.AccountTransaction{pair}, map[string]uuid.UUID{})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if counts.Discovered != 0 || counts.New != 0 || counts.Skipped != 0 {
		t.Fatalf("counts = %+v, want all zero for orphan", counts)
	}
	if len(store.transactions) != 0 {
		t.Fatal("orphan must not be persisted")
	}
}

func TestReconcileDryRun(t *testing.T) {
	store := newMemStore()
	mapping := map[string]uuid.UUID{"a1": uuid.New()}

	counts, err := NewReconciler(store, true).
		Reconcile(context.Background(), "simplefin", []source.AccountTransaction{coffeePair()}, mapping)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if counts.Discovered != 1 || counts.New != 1 || counts.Skipped != 0 {
		t.Fatalf("dry-run counts = %+v, want 1/1/0", counts)
	}
	if len(store.transactions) != 0 {
		t.Fatal("dry run must not persist")
	}

	// The live run after a dry run reports identical counts.
	live, err := NewReconciler(store, false).
		Reconcile(context.Background(), "simplefin", []source.AccountTransaction{coffeePair()}, mapping)
	if err != nil {
		t.Fatalf("live reconcile: %v", err)
	}
	if live != counts {
		t.Fatalf("live counts %+v differ from dry-run counts %+v", live, counts)
	}
}
