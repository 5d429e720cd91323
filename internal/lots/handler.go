package lots

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mandibook/mandibook/internal/platform/httpx"
	"github.com/mandibook/mandibook/internal/shared"
)

// Handler exposes the auto-completion hook for the external CRUD layer to
// invoke after bag weight or lot price writes.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for the lots module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/lots/{lotID}/auto-complete", h.autoComplete)
}

func (h *Handler) autoComplete(w http.ResponseWriter, r *http.Request) {
	tenantID := shared.TenantFromContext(r.Context())
	if tenantID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant required")
		return
	}
	lotID, err := strconv.ParseInt(chi.URLParam(r, "lotID"), 10, 64)
	if err != nil || lotID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lot id")
		return
	}
	// The rule is fire-and-forget: the caller gets 204 whether or not the lot
	// transitioned.
	h.service.AutoComplete(r.Context(), lotID, tenantID)
	httpx.NoContent(w)
}
