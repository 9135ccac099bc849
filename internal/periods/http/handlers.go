package periodshttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/periods"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// PeriodService defines the business contract for the period state machine.
type PeriodService interface {
	GetPeriod(ctx context.Context, id int64) (periods.Period, error)
	ListPeriods(ctx context.Context, tenantID int64, page shared.Pagination) ([]periods.Period, error)
	CreatePeriod(ctx context.Context, in periods.CreatePeriodInput) (periods.Period, error)
	Start(ctx context.Context, id int64) (periods.Period, error)
	Lock(ctx context.Context, id int64) (periods.Period, error)
	Unlock(ctx context.Context, id int64, reason string) (periods.Period, error)
	SubmitForApproval(ctx context.Context, id int64) (periods.Period, error)
	Approve(ctx context.Context, id int64) (periods.Period, error)
	Reject(ctx context.Context, id int64, reason string) (periods.Period, error)
	Close(ctx context.Context, id int64) (periods.Period, error)
}

// Handler serves period lifecycle routes.
type Handler struct {
	logger  *slog.Logger
	service PeriodService
}

// NewHandler constructs a periods HTTP handler.
func NewHandler(logger *slog.Logger, service PeriodService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers period routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods", h.list)
	r.Post("/periods", h.create)
	r.Get("/periods/{id}", h.get)
	r.Post("/periods/{id}/start", h.start)
	r.Post("/periods/{id}/lock", h.lock)
	r.Post("/periods/{id}/unlock", h.unlock)
	r.Post("/periods/{id}/submit", h.submit)
	r.Post("/periods/{id}/approve", h.approve)
	r.Post("/periods/{id}/reject", h.reject)
	r.Post("/periods/{id}/close", h.close)
}

type periodView struct {
	ID              int64      `json:"id"`
	TenantID        int64      `json:"tenant_id"`
	Name            string     `json:"name"`
	Kind            string     `json:"kind"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	Status          string     `json:"status"`
	StartedBy       *int64     `json:"started_by,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	LockedBy        *int64     `json:"locked_by,omitempty"`
	LockedAt        *time.Time `json:"locked_at,omitempty"`
	SubmittedBy     *int64     `json:"submitted_by,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ClosedBy        *int64     `json:"closed_by,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

func toPeriodView(p periods.Period) periodView {
	return periodView{
		ID:              p.ID,
		TenantID:        p.TenantID,
		Name:            p.Name,
		Kind:            string(p.Kind),
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		Status:          string(p.Status),
		StartedBy:       p.StartedBy,
		StartedAt:       p.StartedAt,
		LockedBy:        p.LockedBy,
		LockedAt:        p.LockedAt,
		SubmittedBy:     p.SubmittedBy,
		SubmittedAt:     p.SubmittedAt,
		ApprovedBy:      p.ApprovedBy,
		ApprovedAt:      p.ApprovedAt,
		RejectionReason: p.RejectionReason,
		ClosedBy:        p.ClosedBy,
		ClosedAt:        p.ClosedAt,
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenantID, err := strconv.ParseInt(q.Get("tenant_id"), 10, 64)
	if err != nil || tenantID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "tenant_id query parameter is required")
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("page_size"))
	pagination := shared.NewPagination(page, perPage, 0)
	list, err := h.service.ListPeriods(r.Context(), tenantID, pagination)
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]periodView, 0, len(list))
	for _, p := range list {
		views = append(views, toPeriodView(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"periods":   views,
		"page":      pagination.Page,
		"page_size": pagination.PerPage,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	period, err := h.service.GetPeriod(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodView(period))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in periods.CreatePeriodInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	period, err := h.service.CreatePeriod(r.Context(), in)
	if err != nil {
		h.logger.Error("create period", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPeriodView(period))
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Start)
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Lock)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.SubmitForApproval)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Close)
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	h.transitionWithReason(w, r, h.service.Unlock)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.transitionWithReason(w, r, h.service.Reject)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (periods.Period, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	period, err := op(r.Context(), id)
	if err != nil {
		h.logger.Error("period transition", slog.Int64("period_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodView(period))
}

func (h *Handler) transitionWithReason(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, string) (periods.Period, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	period, err := op(r.Context(), id, req.Reason)
	if err != nil {
		h.logger.Error("period transition", slog.Int64("period_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodView(period))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid period id")
		return 0, false
	}
	return id, true
}
