// Package httptransport is the thin HTTP layer. Handlers delegate to the
// domain services and never embed business logic, so transport concerns
// stay isolated.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credreg/internal/chain"
	"credreg/internal/platform/metrics"
)

// RouterConfig carries the services and cross-cutting pieces the router
// wires together.
type RouterConfig struct {
	Orgs       OrgService
	Certs      CertService
	DIDs       DIDService
	Clock      chain.Clock
	SigningKey []byte
	Logger     *slog.Logger
	Metrics    *metrics.HTTP
}

// NewRouter wires all public endpoints. Mutating and read routes share the
// chain-stamping middleware so both see a consistent ledger position;
// authentication guards everything except health and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recovery(logger))
	r.Use(requestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(observe(cfg.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chainStamp(cfg.Clock))
		r.Use(requireAuth(cfg.SigningKey))

		(&orgHandler{orgs: cfg.Orgs}).register(r)
		(&certHandler{certs: cfg.Certs}).register(r)
		(&didHandler{dids: cfg.DIDs}).register(r)
	})

	return r
}
