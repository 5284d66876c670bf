package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink/internal/backfill"
	"github.com/ledgerlink/ledgerlink/internal/importer"
	"github.com/ledgerlink/ledgerlink/internal/ledger"
	"github.com/ledgerlink/ledgerlink/internal/platform/httpx"
	"github.com/ledgerlink/ledgerlink/internal/source/csvfile"
	"github.com/ledgerlink/ledgerlink/internal/status"
	syncsvc "github.com/ledgerlink/ledgerlink/internal/sync"
)

// Querier is the raw read-only query surface the bridge exposes.
type Querier interface {
	Query(ctx context.Context, sql string) (ledger.QueryResult, error)
}

// Handler serves the bridge API endpoints.
type Handler struct {
	status   *status.Service
	sync     *syncsvc.Service
	backfill *backfill.Projector
	importer *importer.Service
	querier  Querier
	cache    *status.Cache
	log      *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(statusSvc *status.Service, syncSvc *syncsvc.Service, projector *backfill.Projector, importSvc *importer.Service, querier Querier, log *slog.Logger) *Handler {
	return &Handler{
		status:   statusSvc,
		sync:     syncSvc,
		backfill: projector,
		importer: importSvc,
		querier:  querier,
		log:      log,
	}
}

// WithCache invalidates the given summary cache after mutating requests.
func (h *Handler) WithCache(cache *status.Cache) *Handler {
	h.cache = cache
	return h
}

// MountRoutes registers the API routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/status", h.handleStatus)
	r.Get("/accounts", h.handleAccounts)
	r.Post("/query", h.handleQuery)
	r.Post("/sync", h.handleSync)
	r.Post("/backfill", h.handleBackfill)
	r.Post("/import", h.handleImport)
}

// envelope is the uniform success/data/error response shape.
type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *Handler) ok(w http.ResponseWriter, data any) {
	httpx.JSON(w, http.StatusOK, envelope{OK: true, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, status int, err error) {
	h.log.Error("bridge request failed", "error", err)
	httpx.JSON(w, status, envelope{OK: false, Error: err.Error()})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.status.Summary(r.Context())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	h.ok(w, summary)
}

func (h *Handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	summary, err := h.status.Summary(r.Context())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	h.ok(w, summary.Accounts)
}

type queryRequest struct {
	SQL string `json:"sql"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	if !readOnlySQL(req.SQL) {
		h.fail(w, http.StatusBadRequest, errors.New("bridge: only SELECT statements are allowed"))
		return
	}
	result, err := h.querier.Query(r.Context(), req.SQL)
	if err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	h.ok(w, result)
}

// readOnlySQL rejects anything but a single SELECT or WITH statement. This is
// a convenience guard, not a security boundary; the bridge is loopback-only.
func readOnlySQL(sql string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(sql))
	if !strings.HasPrefix(trimmed, "select") && !strings.HasPrefix(trimmed, "with") {
		return false
	}
	return !strings.Contains(strings.TrimSuffix(trimmed, ";"), ";")
}

type syncRequest struct {
	Sources []string `json:"sources"`
	DryRun  bool     `json:"dry_run"`
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			h.fail(w, http.StatusBadRequest, err)
			return
		}
	}
	report, err := h.sync.Run(r.Context(), syncsvc.RunOptions{Sources: req.Sources, DryRun: req.DryRun})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrIntegrationNotFound) {
			status = http.StatusNotFound
		}
		h.fail(w, status, err)
		return
	}
	if !report.DryRun {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.log.Warn("invalidate summary cache", "error", err)
		}
	}
	h.ok(w, syncReportPayload(report))
}

type sourceResultPayload struct {
	Source           string   `json:"source"`
	Window           string   `json:"window,omitempty"`
	AccountsMatched  int      `json:"accounts_matched"`
	AccountsNew      int      `json:"accounts_new"`
	AccountsUntyped  []string `json:"accounts_untyped,omitempty"`
	Discovered       int      `json:"discovered"`
	New              int      `json:"new"`
	Skipped          int      `json:"skipped"`
	SnapshotsCreated int      `json:"snapshots_created"`
	Warnings         []string `json:"warnings,omitempty"`
	Error            string   `json:"error,omitempty"`
}

func syncReportPayload(report syncsvc.Report) map[string]any {
	results := make([]sourceResultPayload, 0, len(report.Results))
	for _, result := range report.Results {
		payload := sourceResultPayload{
			Source:           result.Source,
			Window:           result.Window.Kind,
			AccountsMatched:  result.AccountsMatched,
			AccountsNew:      result.AccountsNew,
			AccountsUntyped:  result.AccountsUntyped,
			Discovered:       result.Transactions.Discovered,
			New:              result.Transactions.New,
			Skipped:          result.Transactions.Skipped,
			SnapshotsCreated: result.SnapshotsCreated,
			Warnings:         result.Warnings,
		}
		if result.Err != nil {
			payload.Error = result.Err.Error()
		}
		results = append(results, payload)
	}
	return map[string]any{"dry_run": report.DryRun, "results": results}
}

type backfillRequest struct {
	AccountID string `json:"account_id"`
	Days      int    `json:"days"`
	DryRun    bool   `json:"dry_run"`
}

func (h *Handler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	opts := backfill.Options{Days: req.Days, DryRun: req.DryRun}
	if req.AccountID != "" {
		id, err := uuid.Parse(req.AccountID)
		if err != nil {
			h.fail(w, http.StatusBadRequest, err)
			return
		}
		opts.AccountID = &id
	}
	result, err := h.backfill.Run(r.Context(), opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		h.fail(w, status, err)
		return
	}
	if !result.DryRun {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.log.Warn("invalidate summary cache", "error", err)
		}
	}
	h.ok(w, result)
}

type importRequest struct {
	AccountID  string `json:"account_id"`
	Path       string `json:"path"`
	DateCol    string `json:"date_col"`
	DescCol    string `json:"desc_col"`
	AmountCol  string `json:"amount_col"`
	DebitCol   string `json:"debit_col"`
	CreditCol  string `json:"credit_col"`
	DateFormat string `json:"date_format"`
	FlipSigns  bool   `json:"flip_signs"`
	DryRun     bool   `json:"dry_run"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.importer.Import(r.Context(), importer.Options{
		AccountID: accountID,
		DryRun:    req.DryRun,
		File: csvfile.Options{
			Path: req.Path,
			Columns: csvfile.ColumnMapping{
				Date:        req.DateCol,
				Description: req.DescCol,
				Amount:      req.AmountCol,
				Debit:       req.DebitCol,
				Credit:      req.CreditCol,
			},
			DateFormat: req.DateFormat,
			FlipSigns:  req.FlipSigns,
		},
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		h.fail(w, status, err)
		return
	}
	if !req.DryRun {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.log.Warn("invalidate summary cache", "error", err)
		}
	}
	h.ok(w, result)
}
