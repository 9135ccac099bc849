package activityhttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/activity"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, periodID int64, f activity.Filters) (activity.Result, error)
}

// Handler serves the read-only activity timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
}

// NewHandler constructs an activity HTTP handler.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers activity routes under /periods.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{id}/activity", h.timeline)
}

type entryView struct {
	ID         int64     `json:"id"`
	PeriodID   int64     `json:"period_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ActorID    int64     `json:"actor_id"`
	Details    string    `json:"details,omitempty"`
	OldValue   string    `json:"old_value,omitempty"`
	NewValue   string    `json:"new_value,omitempty"`
	At         time.Time `json:"at"`
}

type timelineResponse struct {
	Entries []entryView `json:"entries"`
	Page    int         `json:"page"`
	Size    int         `json:"page_size"`
	HasNext bool        `json:"has_next"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || periodID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid period id")
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), periodID, filters)
	if err != nil {
		h.logger.Error("load activity timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	entries := make([]entryView, 0, len(result.Rows))
	for _, row := range result.Rows {
		entries = append(entries, entryView{
			ID:         row.ID,
			PeriodID:   row.PeriodID,
			Action:     row.Action,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			ActorID:    row.ActorID,
			Details:    row.Details,
			OldValue:   row.OldValue,
			NewValue:   row.NewValue,
			At:         row.At,
		})
	}
	httpx.JSON(w, http.StatusOK, timelineResponse{
		Entries: entries,
		Page:    result.Paging.Page,
		Size:    result.Paging.PageSize,
		HasNext: result.Paging.HasNext,
	})
}

func parseFilters(r *http.Request) (activity.Filters, error) {
	q := r.URL.Query()
	f := activity.Filters{
		Action:     strings.TrimSpace(q.Get("action")),
		EntityType: strings.TrimSpace(q.Get("entity")),
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return activity.Filters{}, errInvalidQuery("page")
		}
		f.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return activity.Filters{}, errInvalidQuery("page_size")
		}
		f.PageSize = size
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return activity.Filters{}, errInvalidQuery("from")
		}
		f.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return activity.Filters{}, errInvalidQuery("to")
		}
		f.To = to
	}
	return f, nil
}

type queryError string

func errInvalidQuery(field string) queryError { return queryError("invalid query parameter " + field) }

func (e queryError) Error() string { return string(e) }
