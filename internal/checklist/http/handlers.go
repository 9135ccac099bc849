package checklisthttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/checklist"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

// ChecklistService defines the business contract for closing tasks.
type ChecklistService interface {
	ListByPeriod(ctx context.Context, periodID int64) ([]checklist.Item, error)
	ProgressForPeriod(ctx context.Context, periodID int64) (checklist.Progress, error)
	Begin(ctx context.Context, itemID int64) (checklist.Item, error)
	Complete(ctx context.Context, itemID int64) (checklist.Item, error)
	Skip(ctx context.Context, itemID int64, reason string) (checklist.Item, error)
	Block(ctx context.Context, itemID int64, reason string) (checklist.Item, error)
	Reopen(ctx context.Context, itemID int64) (checklist.Item, error)
	RunAutoCheck(ctx context.Context, itemID int64) (checklist.AutoCheckResult, error)
	RunAllAutoChecks(ctx context.Context, periodID int64) ([]checklist.CheckOutcome, error)
}

// Handler serves checklist item routes.
type Handler struct {
	logger  *slog.Logger
	service ChecklistService
}

// NewHandler constructs a checklist HTTP handler.
func NewHandler(logger *slog.Logger, service ChecklistService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers checklist routes under /periods and /checklist.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{id}/checklist", h.list)
	r.Get("/periods/{id}/checklist/progress", h.progress)
	r.Post("/periods/{id}/checklist/auto-check", h.runAll)
	r.Post("/checklist/{itemID}/begin", h.begin)
	r.Post("/checklist/{itemID}/complete", h.complete)
	r.Post("/checklist/{itemID}/skip", h.skip)
	r.Post("/checklist/{itemID}/block", h.block)
	r.Post("/checklist/{itemID}/reopen", h.reopen)
	r.Post("/checklist/{itemID}/auto-check", h.runOne)
}

type itemView struct {
	ID                 int64                     `json:"id"`
	PeriodID           int64                     `json:"period_id"`
	Category           string                    `json:"category"`
	Name               string                    `json:"name"`
	Description        string                    `json:"description,omitempty"`
	IsRequired         bool                      `json:"is_required"`
	Sequence           int                       `json:"sequence"`
	Status             checklist.ItemStatus      `json:"status"`
	AutoCheckType      string                    `json:"auto_check_type,omitempty"`
	AutoCheckThreshold *float64                  `json:"auto_check_threshold,omitempty"`
	LastResult         *checklist.AutoCheckResult `json:"last_auto_check,omitempty"`
	CompletedBy        *int64                    `json:"completed_by,omitempty"`
	CompletedAt        *time.Time                `json:"completed_at,omitempty"`
	Reason             string                    `json:"reason,omitempty"`
}

func toItemView(item checklist.Item) itemView {
	return itemView{
		ID:                 item.ID,
		PeriodID:           item.PeriodID,
		Category:           item.Category,
		Name:               item.Name,
		Description:        item.Description,
		IsRequired:         item.IsRequired,
		Sequence:           item.Sequence,
		Status:             item.Status,
		AutoCheckType:      string(item.AutoCheckType),
		AutoCheckThreshold: item.AutoCheckThreshold,
		LastResult:         item.LastResult,
		CompletedBy:        item.CompletedBy,
		CompletedAt:        item.CompletedAt,
		Reason:             item.Reason,
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type outcomeView struct {
	ItemID int64                     `json:"item_id"`
	Name   string                    `json:"name"`
	Result *checklist.AutoCheckResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.ListByPeriod(r.Context(), periodID)
	if err != nil {
		h.logger.Error("list checklist", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	progress, err := h.service.ProgressForPeriod(r.Context(), periodID)
	if err != nil {
		h.logger.Error("checklist progress", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, progress)
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Begin)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Complete)
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Reopen)
}

func (h *Handler) skip(w http.ResponseWriter, r *http.Request) {
	h.mutateWithReason(w, r, h.service.Skip)
}

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	h.mutateWithReason(w, r, h.service.Block)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (checklist.Item, error)) {
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	item, err := op(r.Context(), itemID)
	if err != nil {
		h.logger.Error("checklist transition", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemView(item))
}

func (h *Handler) mutateWithReason(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, string) (checklist.Item, error)) {
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	var req reasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	item, err := op(r.Context(), itemID, req.Reason)
	if err != nil {
		h.logger.Error("checklist transition", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemView(item))
}

func (h *Handler) runOne(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	result, err := h.service.RunAutoCheck(r.Context(), itemID)
	if err != nil {
		h.logger.Error("run auto check", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) runAll(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	outcomes, err := h.service.RunAllAutoChecks(r.Context(), periodID)
	if err != nil {
		h.logger.Error("run all auto checks", slog.Int64("period_id", periodID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]outcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		view := outcomeView{ItemID: o.ItemID, Name: o.Name}
		if o.Err != nil {
			view.Error = o.Err.Error()
		} else {
			result := o.Result
			view.Result = &result
		}
		views = append(views, view)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"outcomes": views})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}
