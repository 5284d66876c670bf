package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/source/csvfile"
)

type fakeStore struct {
	account      ledger.Account
	accountErr   error
	transactions map[uuid.UUID]ledger.Transaction
}

func newFakeStore(account ledger.Account) *fakeStore {
	return &fakeStore{account: account, transactions: make(map[uuid.UUID]ledger.Transaction)}
}

func (f *fakeStore) AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	if f.accountErr != nil {
		return ledger.Account{}, f.accountErr
	}
	if id != f.account.ID {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return f.account, nil
}

func (f *fakeStore) TransactionCountsByFingerprint(ctx context.Context, fingerprints []string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, tx := range f.transactions {
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

func (f *fakeStore) BulkUpsertTransactions(ctx context.Context, transactions []ledger.Transaction) error {
	for _, tx := range transactions {
		f.transactions[tx.ID] = tx
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func fileOptions(path string) csvfile.Options {
	return csvfile.Options{
		Path: path,
		Columns: csvfile.ColumnMapping{
			Date:        "Date",
			Description: "Description",
			Amount:      "Amount",
		},
	}
}

func TestImportDuplicateRowsCollapse(t *testing.T) {
	account := ledger.Account{ID: uuid.New(), Name: "Checking"}
	store := newFakeStore(account)
	service := NewService(store, testLogger())

	// Two identical rows share a fingerprint and collapse to one insert.
	path := writeCSV(t, "Date,Description,Amount\n2024-01-05,Coffee Shop,-4.75\n2024-01-05,Coffee Shop,-4.75\n")
	result, err := service.Import(context.Background(), Options{AccountID: account.ID, File: fileOptions(path)})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Discovered != 2 || result.Imported != 1 || result.Skipped != 1 {
		t.Fatalf("first import = %+v, want discovered=2 imported=1 skipped=1", result)
	}
	if len(store.transactions) != 1 {
		t.Fatalf("stored = %d, want 1", len(store.transactions))
	}
	for _, tx := range store.transactions {
		if tx.AccountID != account.ID {
			t.Fatal("imported rows must target the requested account")
		}
	}

	result, err = service.Import(context.Background(), Options{AccountID: account.ID, File: fileOptions(path)})
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if result.Discovered != 2 || result.Imported != 0 || result.Skipped != 2 {
		t.Fatalf("second import = %+v, want discovered=2 imported=0 skipped=2", result)
	}
	if len(store.transactions) != 1 {
		t.Fatalf("stored after repeat = %d, want 1", len(store.transactions))
	}
}

func TestImportUnknownAccountAborts(t *testing.T) {
	store := newFakeStore(ledger.Account{ID: uuid.New(), Name: "Checking"})
	service := NewService(store, testLogger())
	path := writeCSV(t, "Date,Description,Amount\n2024-01-05,Coffee Shop,-4.75\n")

	_, err := service.Import(context.Background(), Options{AccountID: uuid.New(), File: fileOptions(path)})
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
	if len(store.transactions) != 0 {
		t.Fatal("nothing may be written when the account is unknown")
	}
}

func TestImportDryRun(t *testing.T) {
	account := ledger.Account{ID: uuid.New(), Name: "Checking"}
	store := newFakeStore(account)
	service := NewService(store, testLogger())
	path := writeCSV(t, "Date,Description,Amount\n2024-01-05,Coffee Shop,-4.75\n2024-01-06,Groceries,-62.40\n")

	dry, err := service.Import(context.Background(), Options{AccountID: account.ID, File: fileOptions(path), DryRun: true})
	if err != nil {
		t.Fatalf("dry import: %v", err)
	}
	if len(store.transactions) != 0 {
		t.Fatal("dry run must not persist")
	}

	live, err := service.Import(context.Background(), Options{AccountID: account.ID, File: fileOptions(path)})
	if err != nil {
		t.Fatalf("live import: %v", err)
	}
	if dry.Discovered != live.Discovered || dry.Imported != live.Imported || dry.Skipped != live.Skipped {
		t.Fatalf("dry %+v and live %+v counts must match", dry, live)
	}
}
