package status

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

type fakeStore struct {
	accounts     []ledger.Account
	integrations []ledger.Integration
	stats        ledger.Stats
	loads        int
}

func (f *fakeStore) Accounts(ctx context.Context) ([]ledger.Account, error) {
	f.loads++
	return f.accounts, nil
}

func (f *fakeStore) Integrations(ctx context.Context) ([]ledger.Integration, error) {
	return f.integrations, nil
}

func (f *fakeStore) Stats(ctx context.Context) (ledger.Stats, error) {
	return f.stats, nil
}

func seededStore() *fakeStore {
	balance := decimal.RequireFromString("2543.17")
	earliest := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	return &fakeStore{
		accounts: []ledger.Account{{
			ID:          uuid.New(),
			Name:        "Checking",
			AccountType: "checking",
			Currency:    "USD",
			Balance:     &balance,
		}},
		integrations: []ledger.Integration{{Name: "simplefin"}},
		stats: ledger.Stats{
			TransactionCount: 42,
			SnapshotCount:    7,
			EarliestDate:     &earliest,
			LatestDate:       &latest,
		},
	}
}

func TestSummary(t *testing.T) {
	store := seededStore()
	summary, err := NewService(store).Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summary.Accounts) != 1 || summary.Accounts[0].Name != "Checking" {
		t.Fatalf("accounts = %+v", summary.Accounts)
	}
	if len(summary.Integrations) != 1 || summary.Integrations[0] != "simplefin" {
		t.Fatalf("integrations = %v", summary.Integrations)
	}
	if summary.Stats.TransactionCount != 42 {
		t.Fatalf("transaction count = %d", summary.Stats.TransactionCount)
	}
}

func TestSummaryCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := seededStore()
	service := NewService(store).WithCache(NewCache(client, time.Minute))

	first, err := service.Summary(context.Background())
	if err != nil {
		t.Fatalf("first summary: %v", err)
	}
	second, err := service.Summary(context.Background())
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if store.loads != 1 {
		t.Fatalf("store loads = %d, want the second summary served from cache", store.loads)
	}
	if len(second.Accounts) != len(first.Accounts) || second.Stats.TransactionCount != first.Stats.TransactionCount {
		t.Fatal("cached summary must match the loaded one")
	}
	if second.Accounts[0].Balance == nil || !second.Accounts[0].Balance.Equal(*first.Accounts[0].Balance) {
		t.Fatal("balance must survive the cache round trip")
	}
}

func TestSummaryCacheInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := seededStore()
	cache := NewCache(client, time.Minute)
	service := NewService(store).WithCache(cache)

	if _, err := service.Summary(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := service.Summary(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.loads != 2 {
		t.Fatalf("store loads = %d, want a reload after invalidation", store.loads)
	}
}
