// Package status summarizes ledger health for the status command and the
// bridge API.
package status

import (
	"context"
	"fmt"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

// Store is the read-only slice of the store the summary needs.
type Store interface {
	Accounts(ctx context.Context) ([]ledger.Account, error)
	Integrations(ctx context.Context) ([]ledger.Integration, error)
	Stats(ctx context.Context) (ledger.Stats, error)
}

// Summary is one point-in-time view of the ledger.
type Summary struct {
	Accounts     []ledger.Account
	Integrations []string
	Stats        ledger.Stats
}

// Service assembles status summaries.
type Service struct {
	store Store
	cache *Cache
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// WithCache serves summaries through the given cache.
func (s *Service) WithCache(cache *Cache) *Service {
	s.cache = cache
	return s
}

// Summary returns the current ledger summary, cached when a cache is set.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.cache != nil {
		return s.cache.Fetch(ctx, s.load)
	}
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) (Summary, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("status: list accounts: %w", err)
	}
	integrations, err := s.store.Integrations(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("status: list integrations: %w", err)
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("status: load stats: %w", err)
	}
	summary := Summary{Accounts: accounts, Stats: stats}
	for _, integration := range integrations {
		summary.Integrations = append(summary.Integrations, integration.Name)
	}
	return summary, nil
}
