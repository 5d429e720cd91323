package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mandibook/mandibook/internal/platform/httpx"
	"github.com/mandibook/mandibook/internal/shared"
)

// Handler wires report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for the reports module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/tax", h.report(KindTax))
	r.Get("/reports/cess", h.report(KindCess))
	r.Get("/reports/gst", h.report(KindGST))
}

const dateLayout = "2006-01-02"

func (h *Handler) report(kind ReportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := shared.TenantFromContext(r.Context())
		if tenantID == 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
			return
		}
		start, end, reportType, ok := resolveWindow(w, r)
		if !ok {
			return
		}
		var (
			report *Report
			err    error
		)
		generate := map[ReportKind]func(context.Context, int64, time.Time, time.Time, ReportType) (*Report, error){
			KindTax:  h.service.GenerateTaxReport,
			KindCess: h.service.GenerateCessReport,
			KindGST:  h.service.GenerateGSTReport,
		}[kind]
		report, err = generate(r.Context(), tenantID, start, end, reportType)
		if err != nil {
			h.logger.Error("generate report", slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
	}
}

// resolveWindow accepts either type+date (calendar truncation) or explicit
// from/to query parameters.
func resolveWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, ReportType, bool) {
	q := r.URL.Query()
	if from, to := q.Get("from"), q.Get("to"); from != "" && to != "" {
		start, err := time.Parse(dateLayout, from)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from")
			return time.Time{}, time.Time{}, "", false
		}
		end, err := time.Parse(dateLayout, to)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to")
			return time.Time{}, time.Time{}, "", false
		}
		return start, end.Add(24*time.Hour - time.Nanosecond), "", true
	}
	reportType := ReportType(q.Get("type"))
	if reportType == "" {
		reportType = ReportDaily
	}
	date := time.Now()
	if raw := q.Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
			return time.Time{}, time.Time{}, "", false
		}
		date = parsed
	}
	start, end, err := ResolveDateRange(reportType, date)
	if err != nil {
		if errors.Is(err, ErrInvalidReportType) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid report type")
			return time.Time{}, time.Time{}, "", false
		}
		httpx.RespondError(w, err)
		return time.Time{}, time.Time{}, "", false
	}
	return start, end, reportType, true
}
