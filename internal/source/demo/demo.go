// Package demo is a data source with fabricated but realistic accounts and
// transactions, used for trying the tool without linking a real aggregator.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/source"
)

// SourceName is the registry key and external_ids key for this provider.
const SourceName = "demo"

// Provider serves a fixed set of template data. External ids are stable
// across runs so repeated syncs reconcile instead of duplicating.
type Provider struct {
	now func() time.Time
}

// NewProvider constructs a Provider.
func NewProvider() *Provider {
	return &Provider{now: time.Now}
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

type templateAccount struct {
	externalID  string
	name        string
	accountType string
	balance     string
}

var templateAccounts = []templateAccount{
	{externalID: "demo-checking", name: "Demo Checking", accountType: "checking", balance: "2543.17"},
	{externalID: "demo-savings", name: "Demo Savings", accountType: "savings", balance: "15200.00"},
	{externalID: "demo-credit", name: "Demo Credit Card", accountType: "credit", balance: "-482.55"},
}

type templateTransaction struct {
	account     string
	daysAgo     int
	amount      string
	description string
}

var templateTransactions = []templateTransaction{
	{account: "demo-checking", daysAgo: 1, amount: "-4.75", description: "Blue Bottle Coffee"},
	{account: "demo-checking", daysAgo: 2, amount: "-62.40", description: "Whole Foods Market"},
	{account: "demo-checking", daysAgo: 3, amount: "-15.99", description: "Netflix"},
	{account: "demo-checking", daysAgo: 5, amount: "-38.12", description: "Shell Gas Station"},
	{account: "demo-checking", daysAgo: 7, amount: "2850.00", description: "Payroll Deposit"},
	{account: "demo-checking", daysAgo: 9, amount: "-120.00", description: "Electric Utility"},
	{account: "demo-checking", daysAgo: 12, amount: "-54.30", description: "Trader Joes"},
	{account: "demo-checking", daysAgo: 15, amount: "-1650.00", description: "Rent Payment"},
	{account: "demo-checking", daysAgo: 18, amount: "-9.99", description: "Spotify"},
	{account: "demo-checking", daysAgo: 21, amount: "2850.00", description: "Payroll Deposit"},
	{account: "demo-checking", daysAgo: 25, amount: "-86.75", description: "Costco Wholesale"},
	{account: "demo-savings", daysAgo: 4, amount: "500.00", description: "Transfer from Checking"},
	{account: "demo-savings", daysAgo: 14, amount: "12.67", description: "Interest Payment"},
	{account: "demo-savings", daysAgo: 30, amount: "500.00", description: "Transfer from Checking"},
	{account: "demo-credit", daysAgo: 2, amount: "-27.84", description: "Chipotle"},
	{account: "demo-credit", daysAgo: 6, amount: "-142.18", description: "Amazon Purchase"},
	{account: "demo-credit", daysAgo: 10, amount: "-58.00", description: "AMC Theatres"},
	{account: "demo-credit", daysAgo: 16, amount: "350.00", description: "Card Payment"},
}

// Accounts returns the template accounts with their current balances.
func (p *Provider) Accounts(ctx context.Context, opts map[string]string) ([]ledger.Account, []string, error) {
	now := p.now().UTC()
	accounts := make([]ledger.Account, 0, len(templateAccounts))
	for _, tmpl := range templateAccounts {
		balance := decimal.RequireFromString(tmpl.balance)
		accounts = append(accounts, ledger.Account{
			ID:              uuid.New(),
			Name:            tmpl.name,
			AccountType:     tmpl.accountType,
			Currency:        ledger.DefaultCurrency,
			ExternalIDs:     map[string]string{SourceName: tmpl.externalID},
			Balance:         &balance,
			InstitutionName: "Demo Bank",
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return accounts, nil, nil
}

// Transactions returns the template transactions that fall inside the window.
// Dates are anchored to the injected clock so recent syncs always see data.
func (p *Provider) Transactions(ctx context.Context, start, end time.Time, opts map[string]string) ([]source.AccountTransaction, []string, error) {
	now := p.now().UTC()
	var pairs []source.AccountTransaction
	for i, tmpl := range templateTransactions {
		txDate := ledger.DateOnly(now.AddDate(0, 0, -tmpl.daysAgo))
		if txDate.Before(ledger.DateOnly(start)) || txDate.After(ledger.DateOnly(end)) {
			continue
		}
		pairs = append(pairs, source.AccountTransaction{
			SourceAccountID: tmpl.account,
			Transaction: ledger.Transaction{
				ID:              uuid.New(),
				ExternalIDs:     map[string]string{SourceName: fmt.Sprintf("demo-tx-%04d", i)},
				Amount:          decimal.RequireFromString(tmpl.amount),
				Description:     tmpl.description,
				TransactionDate: txDate,
				PostedDate:      txDate,
				CreatedAt:       now,
				UpdatedAt:       now,
			},
		})
	}
	return pairs, nil, nil
}
