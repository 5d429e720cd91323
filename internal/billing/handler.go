package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mandibook/mandibook/internal/platform/httpx"
	"github.com/mandibook/mandibook/internal/shared"
)

// Handler wires billing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes for the billing module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/billing/farmer-bills", h.generateFarmerBill)
	r.Get("/billing/farmer-bills", h.listFarmerBills)
	r.Post("/billing/buyer-bills", h.previewBuyerBill)
	r.Post("/billing/tax-invoices", h.generateTaxInvoice)
	r.Get("/billing/tax-invoices", h.listTaxInvoices)
}

const dateLayout = "2006-01-02"

type farmerBillRequest struct {
	FarmerID        int64   `json:"farmerId" validate:"required,gt=0"`
	Date            string  `json:"date"`
	VehicleRent     float64 `json:"vehicleRent" validate:"gte=0"`
	EmptyBagCharges float64 `json:"emptyBagCharges" validate:"gte=0"`
	Advance         float64 `json:"advance" validate:"gte=0"`
	Rok             float64 `json:"rok" validate:"gte=0"`
	OtherCharges    float64 `json:"otherCharges" validate:"gte=0"`
}

func (h *Handler) generateFarmerBill(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	var req farmerBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}
	bill, err := h.service.GenerateFarmerDayBill(r.Context(), FarmerBillInput{
		TenantID:        tenantID,
		FarmerID:        req.FarmerID,
		Date:            date,
		VehicleRent:     req.VehicleRent,
		EmptyBagCharges: req.EmptyBagCharges,
		Advance:         req.Advance,
		Rok:             req.Rok,
		OtherCharges:    req.OtherCharges,
		UserID:          shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondGenerateError(w, "generate farmer bill", err)
		return
	}
	if bill == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no completed lots for farmer on this date")
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) listFarmerBills(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	bills, err := h.service.ListFarmerBills(r.Context(), tenantID, from, to)
	if err != nil {
		h.logger.Error("list farmer bills", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bills": bills})
}

type buyerBillRequest struct {
	BuyerID int64  `json:"buyerId" validate:"required,gt=0"`
	Date    string `json:"date"`
}

func (h *Handler) previewBuyerBill(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	var req buyerBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}
	bill, err := h.service.GenerateBuyerDayBill(r.Context(), tenantID, req.BuyerID, date)
	if err != nil {
		h.logger.Error("preview buyer bill", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if bill == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no completed lots for buyer on this date")
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) generateTaxInvoice(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	var req buyerBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}
	inv, err := h.service.GenerateTaxInvoice(r.Context(), tenantID, req.BuyerID, date, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondGenerateError(w, "generate tax invoice", err)
		return
	}
	if inv == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no uninvoiced lots for buyer on this date")
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) listTaxInvoices(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	invoices, err := h.service.ListTaxInvoices(r.Context(), tenantID, from, to)
	if err != nil {
		h.logger.Error("list tax invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *Handler) respondGenerateError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrDuplicateBill), errors.Is(err, ErrDuplicateInvoice):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrBillNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseOptionalDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
		return time.Time{}, false
	}
	return parsed, true
}

func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, ok := parseOptionalDate(w, r.URL.Query().Get("from"))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := parseOptionalDate(w, r.URL.Query().Get("to"))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if from.IsZero() {
		from = time.Now().AddDate(0, -1, 0)
	}
	if to.IsZero() {
		to = time.Now()
	}
	return from, to.Add(24*time.Hour - time.Nanosecond), true
}
