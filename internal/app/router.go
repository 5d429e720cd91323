package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandibook/mandibook/internal/billing"
	"github.com/mandibook/mandibook/internal/finacct"
	"github.com/mandibook/mandibook/internal/ledger"
	"github.com/mandibook/mandibook/internal/lots"
	"github.com/mandibook/mandibook/internal/observability"
	"github.com/mandibook/mandibook/internal/reports"
	"github.com/mandibook/mandibook/jobs"
	"github.com/mandibook/mandibook/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	LedgerHandler  *ledger.Handler
	LotsHandler    *lots.Handler
	BillingHandler *billing.Handler
	ReportsHandler *reports.Handler
	FinanceHandler *finacct.Handler
	JobHandler     *jobs.Handler
	PrintHandler   *report.Handler
	Pool           *pgxpool.Pool
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.LedgerHandler != nil {
		params.LedgerHandler.MountRoutes(r)
	}
	if params.LotsHandler != nil {
		params.LotsHandler.MountRoutes(r)
	}
	if params.BillingHandler != nil {
		params.BillingHandler.MountRoutes(r)
	}
	if params.ReportsHandler != nil {
		params.ReportsHandler.MountRoutes(r)
	}
	if params.FinanceHandler != nil {
		params.FinanceHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.PrintHandler != nil {
		r.Route("/print", params.PrintHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
