package report

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mandibook/mandibook/internal/billing"
	"github.com/mandibook/mandibook/internal/platform/httpx"
)

// Handler renders bills and invoices as PDF. The caller posts the document it
// received from the billing endpoints; no lookup happens here.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler creates a print handler.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers print routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Post("/farmer-bill", h.farmerBill)
	r.Post("/tax-invoice", h.taxInvoice)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "pdf renderer unreachable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) farmerBill(w http.ResponseWriter, r *http.Request) {
	var bill billing.FarmerBill
	if err := httpx.DecodeJSON(r, &bill); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if bill.PattiNumber == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "patti number required")
		return
	}
	html, err := FarmerBillHTML(bill)
	if err != nil {
		h.logger.Error("render farmer bill html", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.renderPDF(w, r, html, bill.PattiNumber+".pdf")
}

func (h *Handler) taxInvoice(w http.ResponseWriter, r *http.Request) {
	var inv billing.TaxInvoice
	if err := httpx.DecodeJSON(r, &inv); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if inv.InvoiceNumber == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invoice number required")
		return
	}
	html, err := TaxInvoiceHTML(inv)
	if err != nil {
		h.logger.Error("render tax invoice html", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.renderPDF(w, r, html, inv.InvoiceNumber+".pdf")
}

func (h *Handler) renderPDF(w http.ResponseWriter, r *http.Request, html, filename string) {
	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "pdf renderer error")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename=`+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
