package demo

import (
	"context"
	"testing"
	"time"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testClock() func() time.Time {
	return func() time.Time { return testNow }
}

func TestAccountsAreStable(t *testing.T) {
	provider := NewProvider().WithNow(testClock())
	accounts, warnings, err := provider.Accounts(context.Background(), nil)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	if len(accounts) != 3 {
		t.Fatalf("accounts = %d, want 3", len(accounts))
	}
	for _, account := range accounts {
		if account.ExternalIDs[SourceName] == "" {
			t.Fatalf("account %s lacks a stable external id", account.Name)
		}
		if account.Balance == nil {
			t.Fatalf("account %s lacks a balance", account.Name)
		}
		if account.AccountType == "" {
			t.Fatalf("account %s lacks a type", account.Name)
		}
	}
}

func TestTransactionsRespectWindow(t *testing.T) {
	provider := NewProvider().WithNow(testClock())

	full, _, err := provider.Transactions(context.Background(), testNow.AddDate(0, 0, -90), testNow, nil)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(full) != len(templateTransactions) {
		t.Fatalf("full window = %d, want %d", len(full), len(templateTransactions))
	}

	narrow, _, err := provider.Transactions(context.Background(), testNow.AddDate(0, 0, -3), testNow, nil)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(narrow) >= len(full) {
		t.Fatal("narrow window must exclude older template transactions")
	}
	for _, pair := range narrow {
		if pair.Transaction.TransactionDate.Before(testNow.AddDate(0, 0, -4)) {
			t.Fatalf("transaction dated %s escapes the window", pair.Transaction.TransactionDate)
		}
	}
}

func TestTransactionIDsStableAcrossRuns(t *testing.T) {
	provider := NewProvider().WithNow(testClock())
	start, end := testNow.AddDate(0, 0, -90), testNow

	first, _, err := provider.Transactions(context.Background(), start, end, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := provider.Transactions(context.Background(), start, end, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		a := first[i].Transaction.ExternalIDs[SourceName]
		b := second[i].Transaction.ExternalIDs[SourceName]
		if a == "" || a != b {
			t.Fatalf("external id not stable: %q vs %q", a, b)
		}
	}
}
