package simplefin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/source"
)

// Provider adapts the SimpleFIN bridge to the source contract.
type Provider struct {
	client *Client
	now    func() time.Time
}

// NewProvider constructs a Provider.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client, now: time.Now}
}

// WithNow overrides the clock for testing.
func (p *Provider) WithNow(now func() time.Time) *Provider {
	if now != nil {
		p.now = now
	}
	return p
}

func (p *Provider) Name() string          { return SourceName }
func (p *Provider) CanAccounts() bool     { return true }
func (p *Provider) CanTransactions() bool { return true }

// accountSet mirrors the /accounts response payload.
type accountSet struct {
	Errors   []string         `json:"errors"`
	Accounts []accountPayload `json:"accounts"`
}

type accountPayload struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Currency     string               `json:"currency"`
	Balance      string               `json:"balance"`
	BalanceDate  int64                `json:"balance-date"`
	Org          orgPayload           `json:"org"`
	Transactions []transactionPayload `json:"transactions"`
}

type orgPayload struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	URL    string `json:"url"`
}

type transactionPayload struct {
	ID           string `json:"id"`
	Posted       int64  `json:"posted"`
	TransactedAt int64  `json:"transacted_at"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
	Pending      bool   `json:"pending"`
}

// Accounts pulls the account list with current balances. Individual payload
// problems are reported as warnings; transport and auth failures fail the
// whole pull.
func (p *Provider) Accounts(ctx context.Context, opts map[string]string) ([]ledger.Account, []string, error) {
	set, err := p.fetch(ctx, opts, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	now := p.now().UTC()
	warnings := append([]string(nil), set.Errors...)
	accounts := make([]ledger.Account, 0, len(set.Accounts))
	for _, payload := range set.Accounts {
		if payload.ID == "" || payload.Name == "" {
			warnings = append(warnings, fmt.Sprintf("simplefin: skipping account with missing id or name (%q)", payload.Name))
			continue
		}
		account := ledger.Account{
			ID:                uuid.New(),
			Name:              payload.Name,
			Currency:          normalizeCurrency(payload.Currency),
			ExternalIDs:       map[string]string{SourceName: payload.ID},
			InstitutionName:   payload.Org.Name,
			InstitutionURL:    payload.Org.URL,
			InstitutionDomain: payload.Org.Domain,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if payload.Balance != "" {
			balance, err := decimal.NewFromString(payload.Balance)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("simplefin: account %s has unparseable balance %q", payload.ID, payload.Balance))
			} else {
				account.Balance = &balance
			}
		}
		accounts = append(accounts, account)
	}
	return accounts, warnings, nil
}

// Transactions pulls the transaction window. Malformed records are dropped
// silently per the reconciliation failure policy; the warning list carries
// only what the bridge itself reported.
func (p *Provider) Transactions(ctx context.Context, start, end time.Time, opts map[string]string) ([]source.AccountTransaction, []string, error) {
	set, err := p.fetch(ctx, opts, &start, &end)
	if err != nil {
		return nil, nil, err
	}
	now := p.now().UTC()
	warnings := append([]string(nil), set.Errors...)
	var pairs []source.AccountTransaction
	for _, account := range set.Accounts {
		for _, payload := range account.Transactions {
			tx, ok := p.mapTransaction(payload, now)
			if !ok {
				continue
			}
			pairs = append(pairs, source.AccountTransaction{
				SourceAccountID: account.ID,
				Transaction:     tx,
			})
		}
	}
	return pairs, warnings, nil
}

func (p *Provider) mapTransaction(payload transactionPayload, now time.Time) (ledger.Transaction, bool) {
	if payload.ID == "" || payload.Amount == "" {
		return ledger.Transaction{}, false
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return ledger.Transaction{}, false
	}
	transacted := payload.TransactedAt
	if transacted == 0 {
		transacted = payload.Posted
	}
	if transacted == 0 {
		return ledger.Transaction{}, false
	}
	txDate := ledger.DateOnly(time.Unix(transacted, 0).UTC())
	postedDate := txDate
	if payload.Posted != 0 {
		postedDate = ledger.DateOnly(time.Unix(payload.Posted, 0).UTC())
	}
	return ledger.Transaction{
		ID:              uuid.New(),
		ExternalIDs:     map[string]string{SourceName: payload.ID},
		Amount:          amount,
		Description:     payload.Description,
		TransactionDate: txDate,
		PostedDate:      postedDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, true
}

func (p *Provider) fetch(ctx context.Context, opts map[string]string, start, end *time.Time) (accountSet, error) {
	accessURL := opts[OptionAccessURL]
	if accessURL == "" {
		return accountSet{}, fmt.Errorf("%w: missing %s option", source.ErrAuthRequired, OptionAccessURL)
	}
	endpoint, err := url.Parse(strings.TrimSuffix(accessURL, "/") + "/accounts")
	if err != nil {
		return accountSet{}, fmt.Errorf("simplefin: invalid access URL: %w", err)
	}
	query := endpoint.Query()
	if start != nil {
		query.Set("start-date", strconv.FormatInt(start.Unix(), 10))
	}
	if end != nil {
		query.Set("end-date", strconv.FormatInt(end.Unix(), 10))
	}
	if start == nil && end == nil {
		// Balances only; skip transaction bodies on the account pull.
		query.Set("balances-only", "1")
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return accountSet{}, err
	}
	resp, err := p.client.httpClient.Do(req)
	if err != nil {
		return accountSet{}, fmt.Errorf("simplefin: fetch accounts: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusPaymentRequired:
		return accountSet{}, fmt.Errorf("%w (bridge returned status %d)", source.ErrAuthRequired, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return accountSet{}, fmt.Errorf("simplefin: bridge returned status %d", resp.StatusCode)
	}
	var set accountSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return accountSet{}, fmt.Errorf("simplefin: decode accounts response: %w", err)
	}
	return set, nil
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return ledger.DefaultCurrency
	}
	return currency
}
