package entrieshttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/entries"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

// EntryService defines the business contract for adjusting entries.
type EntryService interface {
	Get(ctx context.Context, id int64) (entries.Entry, error)
	ListByPeriod(ctx context.Context, periodID int64) ([]entries.Entry, error)
	Create(ctx context.Context, in entries.EntryInput) (entries.Entry, error)
	Update(ctx context.Context, id int64, in entries.EntryInput) (entries.Entry, error)
	Submit(ctx context.Context, id int64) (entries.Entry, error)
	Approve(ctx context.Context, id int64) (entries.Entry, error)
	Reject(ctx context.Context, id int64, reason string) (entries.Entry, error)
	Revert(ctx context.Context, id int64) (entries.Entry, error)
	Post(ctx context.Context, id int64) (entries.Entry, error)
	RevertEntry(ctx context.Context, id int64) (entries.Entry, error)
}

// Handler serves adjusting entry routes.
type Handler struct {
	logger  *slog.Logger
	service EntryService
}

// NewHandler constructs an entries HTTP handler.
func NewHandler(logger *slog.Logger, service EntryService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers entry routes under /periods and /entries.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{id}/entries", h.list)
	r.Post("/periods/{id}/entries", h.create)
	r.Get("/entries/{entryID}", h.get)
	r.Put("/entries/{entryID}", h.update)
	r.Post("/entries/{entryID}/submit", h.submit)
	r.Post("/entries/{entryID}/approve", h.approve)
	r.Post("/entries/{entryID}/reject", h.reject)
	r.Post("/entries/{entryID}/revert", h.revert)
	r.Post("/entries/{entryID}/post", h.post)
	r.Post("/entries/{entryID}/revert-entry", h.revertEntry)
}

type entryView struct {
	ID                  int64      `json:"id"`
	PeriodID            int64      `json:"period_id"`
	Reference           uuid.UUID  `json:"reference"`
	EntryType           string     `json:"entry_type"`
	Description         string     `json:"description"`
	LinkedEntityType    string     `json:"linked_entity_type,omitempty"`
	LinkedEntityID      *int64     `json:"linked_entity_id,omitempty"`
	DebitAccount        string     `json:"debit_account"`
	CreditAccount       string     `json:"credit_account"`
	Amount              string     `json:"amount"`
	Currency            string     `json:"currency"`
	ReferenceNumber     string     `json:"reference_number,omitempty"`
	Status              string     `json:"status"`
	IsReversing         bool       `json:"is_reversing"`
	ReverseInNextPeriod bool       `json:"reverse_in_next_period"`
	ReversalOfID        *int64     `json:"reversal_of_id,omitempty"`
	PostedTransactionID *string    `json:"posted_transaction_id,omitempty"`
	RejectionReason     string     `json:"rejection_reason,omitempty"`
	CreatedBy           int64      `json:"created_by"`
	SubmittedBy         *int64     `json:"submitted_by,omitempty"`
	SubmittedAt         *time.Time `json:"submitted_at,omitempty"`
	ApprovedBy          *int64     `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
	RejectedBy          *int64     `json:"rejected_by,omitempty"`
	RejectedAt          *time.Time `json:"rejected_at,omitempty"`
	PostedBy            *int64     `json:"posted_by,omitempty"`
	PostedAt            *time.Time `json:"posted_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toEntryView(e entries.Entry) entryView {
	return entryView{
		ID:                  e.ID,
		PeriodID:            e.PeriodID,
		Reference:           e.Reference,
		EntryType:           string(e.EntryType),
		Description:         e.Description,
		LinkedEntityType:    e.LinkedEntityType,
		LinkedEntityID:      e.LinkedEntityID,
		DebitAccount:        e.DebitAccount,
		CreditAccount:       e.CreditAccount,
		Amount:              e.Amount.String(),
		Currency:            e.Currency,
		ReferenceNumber:     e.ReferenceNumber,
		Status:              string(e.Status),
		IsReversing:         e.IsReversing,
		ReverseInNextPeriod: e.ReverseInNextPeriod,
		ReversalOfID:        e.ReversalOfID,
		PostedTransactionID: e.PostedTransactionID,
		RejectionReason:     e.RejectionReason,
		CreatedBy:           e.CreatedBy,
		SubmittedBy:         e.SubmittedBy,
		SubmittedAt:         e.SubmittedAt,
		ApprovedBy:          e.ApprovedBy,
		ApprovedAt:          e.ApprovedAt,
		RejectedBy:          e.RejectedBy,
		RejectedAt:          e.RejectedAt,
		PostedBy:            e.PostedBy,
		PostedAt:            e.PostedAt,
		CreatedAt:           e.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.service.ListByPeriod(r.Context(), periodID)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]entryView, 0, len(list))
	for _, e := range list {
		views = append(views, toEntryView(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": views})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "entryID")
	if !ok {
		return
	}
	entry, err := h.service.Get(r.Context(), entryID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryView(entry))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in entries.EntryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	in.PeriodID = periodID
	entry, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("create entry", slog.Int64("period_id", periodID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryView(entry))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "entryID")
	if !ok {
		return
	}
	var in entries.EntryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	entry, err := h.service.Update(r.Context(), entryID, in)
	if err != nil {
		h.logger.Error("update entry", slog.Int64("entry_id", entryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryView(entry))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Submit)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Approve)
}

func (h *Handler) revert(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Revert)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Post)
}

func (h *Handler) revertEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "entryID")
	if !ok {
		return
	}
	reversal, err := h.service.RevertEntry(r.Context(), entryID)
	if err != nil {
		h.logger.Error("revert posted entry", slog.Int64("entry_id", entryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryView(reversal))
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "entryID")
	if !ok {
		return
	}
	var req entries.RejectInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	entry, err := h.service.Reject(r.Context(), entryID, req.Reason)
	if err != nil {
		h.logger.Error("reject entry", slog.Int64("entry_id", entryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryView(entry))
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (entries.Entry, error)) {
	entryID, ok := pathID(w, r, "entryID")
	if !ok {
		return
	}
	entry, err := op(r.Context(), entryID)
	if err != nil {
		h.logger.Error("entry transition", slog.Int64("entry_id", entryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryView(entry))
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}
