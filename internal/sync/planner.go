package sync

import (
	"context"
	"time"

	"github.com/ledgerlink/ledgerlink/internal/ledger"
)

// Window labels.
const (
	WindowInitial     = "initial"
	WindowIncremental = "incremental"
)

// Overlap and lookback are policy, not tuning knobs. The 7 day overlap
// absorbs late-posting transactions on incremental pulls; the 90 day lookback
// bounds the first pull against a fresh ledger.
const (
	incrementalOverlap = 7 * 24 * time.Hour
	initialLookback    = 90 * 24 * time.Hour
)

// Window is the date range to request from a remote source.
type Window struct {
	Start time.Time
	End   time.Time
	Kind  string
}

// PlannerStore is the read-only slice of the store the planner needs.
type PlannerStore interface {
	MaxTransactionDate(ctx context.Context) (time.Time, bool, error)
}

// WindowPlanner decides the fetch range for a sync run. It is read-only and
// deterministic given the store's maximum transaction date and the clock.
type WindowPlanner struct {
	store PlannerStore
	now   func() time.Time
}

// NewWindowPlanner constructs a WindowPlanner.
func NewWindowPlanner(store PlannerStore) *WindowPlanner {
	return &WindowPlanner{store: store, now: time.Now}
}

// WithNow overrides the clock for testing.
func (p *WindowPlanner) WithNow(now func() time.Time) *WindowPlanner {
	if now != nil {
		p.now = now
	}
	return p
}

// Plan returns [maxDate-7d, now] labeled incremental when the ledger holds
// transactions, otherwise [now-90d, now] labeled initial.
func (p *WindowPlanner) Plan(ctx context.Context) (Window, error) {
	end := p.now().UTC()
	maxDate, ok, err := p.store.MaxTransactionDate(ctx)
	if err != nil {
		return Window{}, err
	}
	if !ok {
		return Window{Start: end.Add(-initialLookback), End: end, Kind: WindowInitial}, nil
	}
	return Window{Start: ledger.DateOnly(maxDate).Add(-incrementalOverlap), End: end, Kind: WindowIncremental}, nil
}
