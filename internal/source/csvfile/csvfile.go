// Package csvfile parses manually supplied spreadsheet exports into ledger
// transactions. Rows that fail to parse are skipped silently; only whole-file
// problems are errors.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

// SourceName labels the import path in reports and logs.
const SourceName = "csv"

// ColumnMapping names the spreadsheet columns to read. Either Amount or at
// least one of Debit/Credit must be set.
type ColumnMapping struct {
	Date        string `validate:"required"`
	Description string
	Amount      string
	Debit       string
	Credit      string
	PostedDate  string
}

// Options configures one import run.
type Options struct {
	Path          string `validate:"required"`
	Columns       ColumnMapping
	DateFormat    string `validate:"omitempty,oneof=auto YYYY-MM-DD MM/DD/YYYY DD/MM/YYYY YYYY/MM/DD"`
	FlipSigns     bool
	DebitNegative bool
}

var validate = validator.New()

// Validate checks the options before any file IO happens.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("csvfile: invalid options: %w", err)
	}
	if o.Columns.Amount == "" && o.Columns.Debit == "" && o.Columns.Credit == "" {
		return errors.New("csvfile: column mapping needs an amount column or debit/credit columns")
	}
	return nil
}

// Parse reads the whole file and returns the parseable transactions. The
// returned transactions carry a placeholder account id; the import reconciler
// rewrites it to the target account before fingerprinting.
func Parse(opts Options) ([]ledger.Transaction, []string, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("csvfile: open %s: %w", opts.Path, err)
	}
	defer f.Close()
	return parseRows(f, opts, 0)
}

// Preview parses at most limit rows, for showing the user what an import
// would produce.
func Preview(opts Options, limit int) ([]ledger.Transaction, []string, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("csvfile: open %s: %w", opts.Path, err)
	}
	defer f.Close()
	return parseRows(f, opts, limit)
}

func parseRows(r io.Reader, opts Options, limit int) ([]ledger.Transaction, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("csvfile: file is empty")
		}
		return nil, nil, fmt.Errorf("csvfile: read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	now := time.Now().UTC()
	var transactions []ledger.Transaction
	var warnings []string
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("csvfile: read row: %w", err)
		}
		tx, ok := parseRow(record, index, opts, now)
		if !ok {
			// Malformed rows are dropped, not errors.
			continue
		}
		if opts.FlipSigns {
			tx.Amount = tx.Amount.Neg()
		}
		transactions = append(transactions, tx)
		if limit > 0 && len(transactions) >= limit {
			break
		}
	}
	return transactions, warnings, nil
}

func parseRow(record []string, index map[string]int, opts Options, now time.Time) (ledger.Transaction, bool) {
	field := func(column string) string {
		if column == "" {
			return ""
		}
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	txDate, ok := ParseDate(field(opts.Columns.Date), opts.DateFormat)
	if !ok {
		return ledger.Transaction{}, false
	}
	postedDate := txDate
	if raw := field(opts.Columns.PostedDate); raw != "" {
		if parsed, ok := ParseDate(raw, opts.DateFormat); ok {
			postedDate = parsed
		}
	}

	amount, ok := rowAmount(field, opts)
	if !ok {
		return ledger.Transaction{}, false
	}

	return ledger.Transaction{
		ID:              uuid.New(),
		Amount:          amount,
		Description:     CleanDescription(field(opts.Columns.Description)),
		TransactionDate: txDate,
		PostedDate:      postedDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, true
}

func rowAmount(field func(string) string, opts Options) (decimal.Decimal, bool) {
	if opts.Columns.Amount != "" {
		return ParseAmount(field(opts.Columns.Amount))
	}
	debitRaw := field(opts.Columns.Debit)
	creditRaw := field(opts.Columns.Credit)
	if debitRaw == "" && creditRaw == "" {
		return decimal.Decimal{}, false
	}
	var debit, credit *decimal.Decimal
	if debitRaw != "" {
		if v, ok := ParseAmount(debitRaw); ok {
			debit = &v
		}
	}
	if creditRaw != "" {
		if v, ok := ParseAmount(creditRaw); ok {
			credit = &v
		}
	}
	switch {
	case debit != nil && credit != nil:
		// Both populated is unusual; keep the larger magnitude, signs as-is.
		if debit.Abs().GreaterThan(credit.Abs()) {
			return *debit, true
		}
		return *credit, true
	case debit != nil:
		amount := *debit
		if opts.DebitNegative && amount.IsPositive() {
			amount = amount.Neg()
		}
		return amount, true
	case credit != nil:
		return *credit, true
	}
	return decimal.Decimal{}, false
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"01-02-2006",
	"02-01-2006",
}

var namedFormats = map[string]string{
	"YYYY-MM-DD": "2006-01-02",
	"MM/DD/YYYY": "01/02/2006",
	"DD/MM/YYYY": "02/01/2006",
	"YYYY/MM/DD": "2006/01/02",
}

// ParseDate parses a spreadsheet date. Format "auto" (or empty) tries the
// common layouts in order; a named format restricts parsing to one layout.
func ParseDate(raw, format string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	layouts := dateLayouts
	if format != "" && format != "auto" {
		layout, ok := namedFormats[format]
		if !ok {
			return time.Time{}, false
		}
		layouts = []string{layout}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return ledger.DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// ParseAmount parses a monetary string, tolerating currency symbols, digit
// group commas, embedded spaces, and the (100.00) negative convention.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	cleaned = strings.NewReplacer("$", "", ",", "", " ", "").Replace(cleaned)
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}

var (
	nullWordRe = regexp.MustCompile(`(?i)\bnull\b`)
	cardMaskRe = regexp.MustCompile(`(?i)x{10,}\d+`)
	spaceRunRe = regexp.MustCompile(`\s+`)
)

// CleanDescription strips spreadsheet noise before the description is stored:
// literal "null" words, long card-number masks, and redundant whitespace.
func CleanDescription(description string) string {
	if description == "" {
		return ""
	}
	cleaned := nullWordRe.ReplaceAllString(description, "")
	cleaned = cardMaskRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(cleaned, " "))
}
