package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	nullWordRe = regexp.MustCompile(`\bnull\b`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)
)

// Fingerprint derives the deterministic content identity of a transaction.
//
// The hash input is "{account_id}|{date YYYY-MM-DD}|{amount 2dp}|{normalized
// description}"; the result is the lowercase hex encoding of the first 8 bytes
// of its SHA-256 digest, exactly 16 characters. Because the internal account
// id participates in the hash, fingerprints are only comparable within one
// resolved account.
func Fingerprint(accountID uuid.UUID, date time.Time, amount decimal.Decimal, description string) string {
	// Collapse the sign of zero so -0.00 and 0.00 agree.
	if amount.IsZero() {
		amount = decimal.Zero
	}
	input := accountID.String() + "|" +
		date.Format("2006-01-02") + "|" +
		amount.StringFixed(2) + "|" +
		normalizeDescription(description)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:8])
}

// normalizeDescription lowercases, removes the whole word "null", and strips
// every remaining non-alphanumeric rune, so that differently punctuated or
// padded renditions of the same description collide.
func normalizeDescription(description string) string {
	desc := strings.ToLower(description)
	desc = nullWordRe.ReplaceAllString(desc, "")
	return nonAlnumRe.ReplaceAllString(desc, "")
}

// EnsureFingerprint stores the computed fingerprint under
// external_ids["fingerprint"] unless one is already present. Assignment is
// idempotent: an existing fingerprint is never recomputed here.
func EnsureFingerprint(t *Transaction) {
	if _, ok := t.Fingerprint(); ok {
		return
	}
	if t.ExternalIDs == nil {
		t.ExternalIDs = make(map[string]string, 1)
	}
	t.ExternalIDs[ExternalIDFingerprint] = Fingerprint(t.AccountID, t.TransactionDate, t.Amount, t.Description)
}

// ResetFingerprint discards any stored fingerprint and recomputes it from the
// transaction's current fields. Reconciliation calls this after rewriting the
// account reference, since the internal account id is part of the hash input.
func ResetFingerprint(t *Transaction) {
	if t.ExternalIDs != nil {
		delete(t.ExternalIDs, ExternalIDFingerprint)
	}
	EnsureFingerprint(t)
}
