// Package bridge exposes the ledger engine over a local HTTP API for the
// desktop shell. It binds to loopback; it is not a public surface.
package bridge

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/ledgerlink/ledgerlink/internal/app"
	"github.com/ledgerlink/ledgerlink/internal/observability"
)

// RouterParams groups dependencies for building the bridge router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *app.Config
	Handler *Handler
	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router for the bridge API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	timeout := 30 * time.Second
	if params.Config != nil && params.Config.BridgeRequestTimeout > 0 {
		timeout = params.Config.BridgeRequestTimeout
	}
	// In production only requests addressed to the bridge's own host are
	// served; a browser tab rebound to 127.0.0.1 presents a foreign Host.
	secureOpts := secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		IsDevelopment:      !params.Config.IsProduction(),
	}
	if params.Config != nil && params.Config.BridgeAddr != "" {
		secureOpts.AllowedHosts = []string{params.Config.BridgeAddr}
	}
	secureMiddleware := secure.New(secureOpts)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))
	r.Use(chimw.Compress(5))
	r.Use(secureMiddleware.Handler)
	r.Use(httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", params.Handler.MountRoutes)
	return r
}
