package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExternalIDFingerprint is the external_ids key holding the content fingerprint.
const ExternalIDFingerprint = "fingerprint"

// DefaultCurrency is assumed when a source reports no currency code.
const DefaultCurrency = "USD"

// Account models a financial account owned by the user.
//
// ExternalIDs maps a source name (e.g. "simplefin") to the identifier that
// source assigns to the account. It is the only key used to match accounts
// across syncs; the internal ID is immutable once assigned.
type Account struct {
	ID                uuid.UUID
	Name              string
	Nickname          string
	AccountType       string
	Currency          string
	ExternalIDs       map[string]string
	Balance           *decimal.Decimal
	InstitutionName   string
	InstitutionURL    string
	InstitutionDomain string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Transaction is a single ledger entry belonging to an account.
//
// Amount is signed: positive for inflows, negative for outflows, following the
// source's convention. TransactionDate is the economic date; PostedDate
// defaults to it. ExternalIDs may hold a source-native id and/or a
// "fingerprint" entry.
type Transaction struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	ExternalIDs     map[string]string
	Amount          decimal.Decimal
	Description     string
	TransactionDate time.Time
	PostedDate      time.Time
	Tags            []string
	ParentID        *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// BalanceSnapshot records an account balance at a point in time.
// SnapshotTime is naive (no zone semantics); at most one materially distinct
// snapshot per account and calendar day is desired, where "materially
// distinct" means the balances differ by at least SnapshotTolerance.
type BalanceSnapshot struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Balance      decimal.Decimal
	SnapshotTime time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SnapshotTolerance is the distinctness threshold for same-day snapshots.
var SnapshotTolerance = decimal.NewFromFloat(0.01)

// Integration is one configured data source with its opaque options
// (credentials, file settings) as stored in the integrations table.
type Integration struct {
	Name      string
	Options   map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalIDRef addresses a transaction by a single source-native id, used by
// the batch existence lookup during reconciliation.
type ExternalIDRef struct {
	Source string
	ID     string
}

var (
	// ErrAccountNotFound indicates the referenced account id does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrIntegrationNotFound indicates the integration is not configured.
	ErrIntegrationNotFound = errors.New("ledger: integration not found")
	// ErrNoCurrentBalance indicates an account has no balance to project from.
	ErrNoCurrentBalance = errors.New("ledger: account has no current balance")
)

// SourceID returns the account's native id under the given source name.
func (a Account) SourceID(source string) (string, bool) {
	id, ok := a.ExternalIDs[strings.ToLower(source)]
	return id, ok && id != ""
}

// Fingerprint returns the stored content fingerprint, if any.
func (t Transaction) Fingerprint() (string, bool) {
	fp, ok := t.ExternalIDs[ExternalIDFingerprint]
	return fp, ok && fp != ""
}

// SourceID returns the transaction's native id under the given source name.
func (t Transaction) SourceID(source string) (string, bool) {
	id, ok := t.ExternalIDs[strings.ToLower(source)]
	return id, ok && id != ""
}

// DateOnly truncates t to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
