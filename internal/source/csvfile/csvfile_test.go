package csvfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"-12.34", "-12.34", true},
		{"$1,234.56", "1234.56", true},
		{"(100.00)", "-100.00", true},
		{"$ 45.00", "45.00", true},
		{"", "", false},
		{"n/a", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.raw)
		if ok != tc.ok {
			t.Fatalf("ParseAmount(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		raw    string
		format string
		want   string
		ok     bool
	}{
		{"2024-01-05", "auto", "2024-01-05", true},
		{"01/05/2024", "auto", "2024-01-05", true},
		{"2024/01/05", "auto", "2024-01-05", true},
		{"05/01/2024", "DD/MM/YYYY", "2024-01-05", true},
		{"not a date", "auto", "", false},
		{"", "auto", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.raw, tc.format)
		if ok != tc.ok {
			t.Fatalf("ParseDate(%q, %q) ok = %v, want %v", tc.raw, tc.format, ok, tc.ok)
		}
		if ok && got.Format("2006-01-02") != tc.want {
			t.Fatalf("ParseDate(%q, %q) = %s, want %s", tc.raw, tc.format, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestCleanDescription(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"COFFEE SHOP null", "COFFEE SHOP"},
		{"CARD XXXXXXXXXXXX1234 PURCHASE", "CARD PURCHASE"},
		{"  spaced   out  ", "spaced out"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanDescription(tc.raw); got != tc.want {
			t.Fatalf("CleanDescription(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseAmountColumn(t *testing.T) {
	path := writeFile(t, "Date,Description,Amount\n2024-01-05,Coffee Shop,-4.75\n2024-01-06,Payroll,\"2,850.00\"\nbad-date,Broken,1.00\n")
	rows, _, err := Parse(Options{
		Path: path,
		Columns: ColumnMapping{
			Date:        "Date",
			Description: "Description",
			Amount:      "Amount",
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2, "malformed rows drop silently")
	require.Equal(t, "Coffee Shop", rows[0].Description)
	require.True(t, rows[0].Amount.Equal(decimal.RequireFromString("-4.75")))
	require.Equal(t, "2024-01-05", rows[0].TransactionDate.Format("2006-01-02"))
	require.True(t, rows[1].Amount.Equal(decimal.RequireFromString("2850.00")))
}

func TestParseDebitCreditColumns(t *testing.T) {
	path := writeFile(t, "Date,Description,Debit,Credit\n2024-01-05,Groceries,62.40,\n2024-01-06,Deposit,,500.00\n")
	rows, _, err := Parse(Options{
		Path: path,
		Columns: ColumnMapping{
			Date:        "Date",
			Description: "Description",
			Debit:       "Debit",
			Credit:      "Credit",
		},
		DebitNegative: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, rows[0].Amount.Equal(decimal.RequireFromString("-62.40")), "debit negates")
	require.True(t, rows[1].Amount.Equal(decimal.RequireFromString("500.00")))
}

func TestParseFlipSigns(t *testing.T) {
	path := writeFile(t, "Date,Amount\n2024-01-05,4.75\n")
	rows, _, err := Parse(Options{
		Path:      path,
		Columns:   ColumnMapping{Date: "Date", Amount: "Amount"},
		FlipSigns: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Amount.Equal(decimal.RequireFromString("-4.75")))
}

func TestOptionsValidate(t *testing.T) {
	err := Options{Path: "x.csv", Columns: ColumnMapping{Date: "Date"}}.Validate()
	require.Error(t, err, "amount or debit/credit required")

	err = Options{Path: "x.csv", Columns: ColumnMapping{Date: "Date", Amount: "Amount"}, DateFormat: "bogus"}.Validate()
	require.Error(t, err)

	err = Options{Path: "x.csv", Columns: ColumnMapping{Date: "Date", Amount: "Amount"}, DateFormat: "auto"}.Validate()
	require.NoError(t, err)
}

func TestDetectColumns(t *testing.T) {
	path := writeFile(t, "Transaction Date,Post Date,Payee Name,Debit Amount,Credit Amount\n2024-01-05,2024-01-06,Coffee,4.75,\n")
	mapping, err := DetectColumns(path)
	require.NoError(t, err)
	require.Equal(t, "Transaction Date", mapping.Date)
	require.Equal(t, "Post Date", mapping.PostedDate)
	require.Equal(t, "Payee Name", mapping.Description)
	require.Equal(t, "Debit Amount", mapping.Debit)
	require.Equal(t, "Credit Amount", mapping.Credit)
}

func TestPreviewLimit(t *testing.T) {
	path := writeFile(t, "Date,Amount\n2024-01-05,1.00\n2024-01-06,2.00\n2024-01-07,3.00\n")
	rows, _, err := Preview(Options{Path: path, Columns: ColumnMapping{Date: "Date", Amount: "Amount"}}, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
