package sync

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

// MatchResult is the outcome of matching one source's discovered accounts
// against the stored ledger.
type MatchResult struct {
	// Merged holds every discovered account, matched ones carrying their
	// stored internal id and new ones carrying a fresh id. This is the list
	// to upsert.
	Merged []ledger.Account
	// Untyped holds the new accounts that still lack a type classification,
	// for user follow-up.
	Untyped []ledger.Account
	// IDs maps the source-native account id to the resolved internal id,
	// consumed by the transaction reconciler.
	IDs map[string]uuid.UUID
}

// MatchAccounts resolves each discovered account against the stored list by
// exact equality of external_ids[source]. A match keeps the stored internal
// id and the user-set account_type and nickname; name, currency, balance and
// institution fields always reflect the latest pull. No fuzzy matching.
func MatchAccounts(source string, discovered, stored []ledger.Account, now time.Time) MatchResult {
	source = strings.ToLower(source)
	result := MatchResult{IDs: make(map[string]uuid.UUID, len(discovered))}
	for _, incoming := range discovered {
		nativeID, ok := incoming.SourceID(source)
		if !ok {
			// Cannot be matched or re-matched later; drop it.
			continue
		}
		merged, matched := mergeExisting(source, nativeID, incoming, stored, now)
		if !matched {
			merged = incoming
			if merged.ID == uuid.Nil {
				merged.ID = uuid.New()
			}
			merged.CreatedAt = now
			merged.UpdatedAt = now
			if merged.AccountType == "" {
				result.Untyped = append(result.Untyped, merged)
			}
		}
		result.Merged = append(result.Merged, merged)
		result.IDs[nativeID] = merged.ID
	}
	return result
}

func mergeExisting(source, nativeID string, incoming ledger.Account, stored []ledger.Account, now time.Time) (ledger.Account, bool) {
	for _, existing := range stored {
		existingID, ok := existing.SourceID(source)
		if !ok || existingID != nativeID {
			continue
		}
		merged := existing
		merged.Name = incoming.Name
		merged.Currency = incoming.Currency
		merged.Balance = incoming.Balance
		merged.InstitutionName = incoming.InstitutionName
		merged.InstitutionURL = incoming.InstitutionURL
		merged.InstitutionDomain = incoming.InstitutionDomain
		externalIDs := make(map[string]string, len(existing.ExternalIDs)+len(incoming.ExternalIDs))
		for key, value := range existing.ExternalIDs {
			externalIDs[key] = value
		}
		for key, value := range incoming.ExternalIDs {
			externalIDs[key] = value
		}
		merged.ExternalIDs = externalIDs
		merged.UpdatedAt = now
		return merged, true
	}
	return ledger.Account{}, false
}
