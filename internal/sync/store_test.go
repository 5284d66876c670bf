package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

// memStore is an in-memory ledger.Store for exercising the sync pipeline
// without Postgres.
type memStore struct {
	accounts     map[uuid.UUID]ledger.Account
	transactions map[uuid.UUID]ledger.Transaction
	snapshots    []ledger.BalanceSnapshot
	integrations []ledger.Integration
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[uuid.UUID]ledger.Account),
		transactions: make(map[uuid.UUID]ledger.Transaction),
	}
}

func (m *memStore) Accounts(ctx context.Context) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		out = append(out, account)
	}
	return out, nil
}

func (m *memStore) AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	account, ok := m.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return account, nil
}

func (m *memStore) BulkUpsertAccounts(ctx context.Context, accounts []ledger.Account) ([]ledger.Account, error) {
	for _, account := range accounts {
		m.accounts[account.ID] = account
	}
	return accounts, nil
}

func (m *memStore) TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range m.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memStore) TransactionsByExternalIDs(ctx context.Context, refs []ledger.ExternalIDRef) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range m.transactions {
		for _, ref := range refs {
			if tx.ExternalIDs[ref.Source] == ref.ID && ref.ID != "" {
				out = append(out, tx)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) TransactionCountsByFingerprint(ctx context.Context, fingerprints []string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, tx := range m.transactions {
		fp, ok := tx.Fingerprint()
		if !ok {
			continue
		}
		for _, want := range fingerprints {
			if fp == want {
				counts[fp]++
				break
			}
		}
	}
	return counts, nil
}

func (m *memStore) MaxTransactionDate(ctx context.Context) (time.Time, bool, error) {
	var max time.Time
	found := false
	for _, tx := range m.transactions {
		if !found || tx.TransactionDate.After(max) {
			max = tx.TransactionDate
			found = true
		}
	}
	return max, found, nil
}

func (m *memStore) BulkUpsertTransactions(ctx context.Context, transactions []ledger.Transaction) error {
	for _, tx := range transactions {
		m.transactions[tx.ID] = tx
	}
	return nil
}

// AddBalance mirrors the Postgres primary key on balance_snapshots: callers
// must supply a fresh non-nil ID.
func (m *memStore) AddBalance(ctx context.Context, snapshot ledger.BalanceSnapshot) error {
	if snapshot.ID == uuid.Nil {
		return fmt.Errorf("insert snapshot: nil id")
	}
	for _, existing := range m.snapshots {
		if existing.ID == snapshot.ID {
			return fmt.Errorf("insert snapshot: duplicate key %s", snapshot.ID)
		}
	}
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *memStore) BalanceSnapshots(ctx context.Context, accountID *uuid.UUID, day *time.Time) ([]ledger.BalanceSnapshot, error) {
	var out []ledger.BalanceSnapshot
	for _, snapshot := range m.snapshots {
		if accountID != nil && snapshot.AccountID != *accountID {
			continue
		}
		if day != nil && !ledger.SameDay(snapshot.SnapshotTime, *day) {
			continue
		}
		out = append(out, snapshot)
	}
	return out, nil
}

func (m *memStore) Integrations(ctx context.Context) ([]ledger.Integration, error) {
	return m.integrations, nil
}

func (m *memStore) UpsertIntegration(ctx context.Context, name string, options map[string]string) error {
	for i, integration := range m.integrations {
		if integration.Name == name {
			m.integrations[i].Options = options
			return nil
		}
	}
	m.integrations = append(m.integrations, ledger.Integration{Name: name, Options: options})
	return nil
}
