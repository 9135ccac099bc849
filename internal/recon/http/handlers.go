package reconhttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/recon"
)

// StatusService computes reconciliation projections.
type StatusService interface {
	StatusForPeriod(ctx context.Context, tenantID, periodID int64) (recon.Status, error)
	Invalidate(ctx context.Context) error
}

// TenantResolver maps a period to its tenant for the projection lookup.
type TenantResolver interface {
	PeriodTenant(ctx context.Context, periodID int64) (int64, error)
}

// Handler serves the reconciliation health projection.
type Handler struct {
	logger  *slog.Logger
	service StatusService
	tenants TenantResolver
}

// NewHandler constructs a reconciliation HTTP handler.
func NewHandler(logger *slog.Logger, service StatusService, tenants TenantResolver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, tenants: tenants}
}

// MountRoutes registers reconciliation routes under /periods.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{id}/reconciliation", h.status)
	r.Post("/reconciliation/invalidate", h.invalidate)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || periodID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid period id")
		return
	}
	tenantID, err := h.tenants.PeriodTenant(r.Context(), periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	status, err := h.service.StatusForPeriod(r.Context(), tenantID, periodID)
	if err != nil {
		h.logger.Error("reconciliation status", slog.Int64("period_id", periodID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

// invalidate expires cached projections after upstream match data changes.
func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.logger.Error("invalidate reconciliation cache", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
