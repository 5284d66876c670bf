package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFingerprintDeterministic(t *testing.T) {
	accountID := uuid.MustParse("3e0b6f5e-3f5f-4f63-9a7c-30c9a1a0b111")
	amount := decimal.RequireFromString("-12.34")

	first := Fingerprint(accountID, date("2024-01-05"), amount, "Coffee Shop")
	second := Fingerprint(accountID, date("2024-01-05"), amount, "Coffee Shop")
	if first != second {
		t.Fatalf("fingerprint not deterministic: %s vs %s", first, second)
	}
	if len(first) != 16 {
		t.Fatalf("expected 16 hex characters, got %d (%s)", len(first), first)
	}
	for _, r := range first {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("non lowercase-hex rune %q in %s", r, first)
		}
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	accountID := uuid.MustParse("3e0b6f5e-3f5f-4f63-9a7c-30c9a1a0b111")
	otherAccount := uuid.MustParse("88c1fb2e-17c4-4386-9d27-a4b6f9e0c222")
	amount := decimal.RequireFromString("-12.34")
	base := Fingerprint(accountID, date("2024-01-05"), amount, "Coffee Shop")

	variants := map[string]string{
		"account":     Fingerprint(otherAccount, date("2024-01-05"), amount, "Coffee Shop"),
		"date":        Fingerprint(accountID, date("2024-01-06"), amount, "Coffee Shop"),
		"amount":      Fingerprint(accountID, date("2024-01-05"), decimal.RequireFromString("-12.35"), "Coffee Shop"),
		"description": Fingerprint(accountID, date("2024-01-05"), amount, "Tea Shop"),
	}
	for field, fp := range variants {
		if fp == base {
			t.Errorf("changing %s did not change the fingerprint", field)
		}
	}
}

func TestFingerprintNormalization(t *testing.T) {
	accountID := uuid.MustParse("3e0b6f5e-3f5f-4f63-9a7c-30c9a1a0b111")
	amount := decimal.RequireFromString("5.00")

	cases := []struct {
		name string
		a, b string
	}{
		{"case folds", "COFFEE SHOP", "coffee shop"},
		{"punctuation strips", "coffee-shop #42", "coffee shop 42"},
		{"null word removed", "coffee null shop", "coffee shop"},
		{"whitespace irrelevant", "  coffee   shop ", "coffeeshop"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fpA := Fingerprint(accountID, date("2024-01-05"), amount, tc.a)
			fpB := Fingerprint(accountID, date("2024-01-05"), amount, tc.b)
			if fpA != fpB {
				t.Fatalf("%q and %q should collide: %s vs %s", tc.a, tc.b, fpA, fpB)
			}
		})
	}

	// "nullify" contains null as a substring, not a whole word.
	fpA := Fingerprint(accountID, date("2024-01-05"), amount, "nullify fees")
	fpB := Fingerprint(accountID, date("2024-01-05"), amount, "ify fees")
	if fpA == fpB {
		t.Fatal("whole-word null removal must not strip substrings")
	}
}

func TestFingerprintNegativeZero(t *testing.T) {
	accountID := uuid.MustParse("3e0b6f5e-3f5f-4f63-9a7c-30c9a1a0b111")
	zero := decimal.RequireFromString("0.00")
	negZero := decimal.RequireFromString("-0.00")
	if Fingerprint(accountID, date("2024-01-05"), zero, "x") != Fingerprint(accountID, date("2024-01-05"), negZero, "x") {
		t.Fatal("sign of zero must collapse")
	}
}

func TestEnsureFingerprintIdempotent(t *testing.T) {
	tx := Transaction{
		ID:              uuid.New(),
		AccountID:       uuid.New(),
		Amount:          decimal.RequireFromString("-4.75"),
		Description:     "Blue Bottle Coffee",
		TransactionDate: date("2024-03-01"),
	}
	EnsureFingerprint(&tx)
	first, ok := tx.Fingerprint()
	if !ok {
		t.Fatal("fingerprint not assigned")
	}

	// A later edit must not change an already stored fingerprint.
	tx.Description = "renamed"
	EnsureFingerprint(&tx)
	second, _ := tx.Fingerprint()
	if first != second {
		t.Fatalf("ensure must be idempotent: %s vs %s", first, second)
	}

	ResetFingerprint(&tx)
	third, _ := tx.Fingerprint()
	if third == first {
		t.Fatal("reset must recompute from current fields")
	}
	if third != Fingerprint(tx.AccountID, tx.TransactionDate, tx.Amount, tx.Description) {
		t.Fatal("reset fingerprint does not match direct computation")
	}
}
