package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mandibook/mandibook/internal/platform/httpx"
	"github.com/mandibook/mandibook/internal/shared"
)

// Handler wires ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger/entries", h.listEntries)
	r.Post("/payments/received", h.paymentReceived)
	r.Post("/payments/made", h.paymentMade)
	r.Get("/expenses", h.listExpenses)
	r.Get("/expenses/summary", h.expenseSummary)
	r.Post("/expenses", h.createExpense)
}

const dateLayout = "2006-01-02"

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	q := r.URL.Query()
	filter := EntryFilter{
		FiscalYear:  q.Get("fiscal_year"),
		AccountHead: AccountHead(q.Get("account_head")),
		EntityType:  EntityType(q.Get("entity_type")),
	}
	if v := q.Get("entity_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entity_id")
			return
		}
		filter.EntityID = id
	}
	var ok bool
	if filter.From, ok = parseDateParam(w, q.Get("from")); !ok {
		return
	}
	if filter.To, ok = parseDateParam(w, q.Get("to")); !ok {
		return
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	entries, err := h.service.ListEntries(r.Context(), tenantID, filter)
	if err != nil {
		h.logger.Error("list ledger entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type paymentRequest struct {
	EntityID        int64   `json:"entityId" validate:"required,gt=0"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Method          string  `json:"method" validate:"required,oneof=cash bank_transfer cheque upi"`
	ReferenceNumber string  `json:"referenceNumber"`
	Description     string  `json:"description"`
	Date            string  `json:"date"`
}

func (h *Handler) paymentReceived(w http.ResponseWriter, r *http.Request) {
	h.handlePayment(w, r, EntityBuyer, h.service.RecordPaymentReceived)
}

func (h *Handler) paymentMade(w http.ResponseWriter, r *http.Request) {
	h.handlePayment(w, r, EntityFarmer, h.service.RecordPaymentMade)
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request, entityType EntityType, record func(ctx context.Context, in PaymentInput) ([]Entry, error)) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
			return
		}
		date = parsed
	}
	entries, err := record(r.Context(), PaymentInput{
		TenantID:        tenantID,
		EntityType:      entityType,
		EntityID:        req.EntityID,
		Amount:          req.Amount,
		Method:          req.Method,
		ReferenceNumber: req.ReferenceNumber,
		Description:     req.Description,
		Date:            date,
		UserID:          shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"entries": entries})
}

type expenseRequest struct {
	Category      string  `json:"category" validate:"required"`
	Subcategory   string  `json:"subcategory"`
	Description   string  `json:"description" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod" validate:"omitempty,oneof=cash bank_transfer cheque upi"`
	ReceiptNumber string  `json:"receiptNumber"`
	VendorName    string  `json:"vendorName"`
	ExpenseDate   string  `json:"expenseDate"`
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var expenseDate time.Time
	if req.ExpenseDate != "" {
		parsed, err := time.Parse(dateLayout, req.ExpenseDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid expenseDate")
			return
		}
		expenseDate = parsed
	}
	expense, err := h.service.RecordExpense(r.Context(), ExpenseInput{
		TenantID:      tenantID,
		Category:      req.Category,
		Subcategory:   req.Subcategory,
		Description:   req.Description,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		ReceiptNumber: req.ReceiptNumber,
		VendorName:    req.VendorName,
		ExpenseDate:   expenseDate,
		UserID:        shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("record expense", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	expenses, err := h.service.ListExpenses(r.Context(), tenantID, from, to)
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (h *Handler) expenseSummary(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	summary, err := h.service.ExpenseSummary(r.Context(), tenantID, from, to)
	if err != nil {
		h.logger.Error("expense summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func parseDateParam(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date parameter")
		return time.Time{}, false
	}
	return parsed, true
}

func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, ok := parseDateParam(w, r.URL.Query().Get("from"))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := parseDateParam(w, r.URL.Query().Get("to"))
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
