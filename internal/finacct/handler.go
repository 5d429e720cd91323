package finacct

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mandibook/mandibook/internal/platform/httpx"
	"github.com/mandibook/mandibook/internal/shared"
)

// Handler wires final accounts endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for the finance module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/finance/pl", h.profitLoss)
	r.Get("/finance/bs", h.balanceSheet)
	r.Get("/finance/cashflow", h.cashFlow)
	r.Get("/finance/trading", h.trading)
	r.Get("/finance/gst-liability", h.gstLiability)
	r.Get("/finance/reconcile", h.reconcile)
}

const dateLayout = "2006-01-02"

type windowParams struct {
	fiscalYear string
	from       time.Time
	to         time.Time
}

func (h *Handler) params(w http.ResponseWriter, r *http.Request) (int64, windowParams, bool) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return 0, windowParams{}, false
	}
	q := r.URL.Query()
	p := windowParams{fiscalYear: q.Get("fiscal_year")}
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from")
			return 0, windowParams{}, false
		}
		p.from = parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to")
			return 0, windowParams{}, false
		}
		p.to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return tenantID, p, true
}

func (h *Handler) respond(w http.ResponseWriter, op string, result any, err error) {
	if err != nil {
		if errors.Is(err, shared.ErrInvalidFiscalYear) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid fiscal year")
			return
		}
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) profitLoss(w http.ResponseWriter, r *http.Request) {
	tenantID, p, ok := h.params(w, r)
	if !ok {
		return
	}
	pl, err := h.service.ProfitLoss(r.Context(), tenantID, p.fiscalYear, p.from, p.to)
	h.respond(w, "profit and loss", pl, err)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	tenantID, p, ok := h.params(w, r)
	if !ok {
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), tenantID, p.fiscalYear, p.from, p.to)
	h.respond(w, "balance sheet", bs, err)
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	tenantID, p, ok := h.params(w, r)
	if !ok {
		return
	}
	cf, err := h.service.CashFlow(r.Context(), tenantID, p.fiscalYear, p.from, p.to)
	h.respond(w, "cash flow", cf, err)
}

func (h *Handler) trading(w http.ResponseWriter, r *http.Request) {
	tenantID, p, ok := h.params(w, r)
	if !ok {
		return
	}
	summary, err := h.service.TradingDetails(r.Context(), tenantID, p.fiscalYear, p.from, p.to)
	h.respond(w, "trading details", summary, err)
}

func (h *Handler) gstLiability(w http.ResponseWriter, r *http.Request) {
	tenantID, p, ok := h.params(w, r)
	if !ok {
		return
	}
	_, start, end, err := Window(p.fiscalYear, p.from, p.to)
	if err != nil {
		h.respond(w, "gst liability", nil, err)
		return
	}
	liability, err := h.service.CalculateGSTLiability(r.Context(), tenantID, start, end)
	h.respond(w, "gst liability", liability, err)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	tenantID, p, ok := h.params(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Reconcile(r.Context(), tenantID, p.fiscalYear, p.from, p.to)
	h.respond(w, "reconcile", rec, err)
}
