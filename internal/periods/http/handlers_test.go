package periodshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/periods"
	"github.com/meridian-erp/meridian/internal/shared"
)

type fakeService struct {
	period periods.Period
	err    error
	reason string
}

func (f *fakeService) GetPeriod(context.Context, int64) (periods.Period, error) {
	return f.period, f.err
}

func (f *fakeService) ListPeriods(context.Context, int64, shared.Pagination) ([]periods.Period, error) {
	return []periods.Period{f.period}, f.err
}

func (f *fakeService) CreatePeriod(context.Context, periods.CreatePeriodInput) (periods.Period, error) {
	return f.period, f.err
}

func (f *fakeService) Start(context.Context, int64) (periods.Period, error)   { return f.period, f.err }
func (f *fakeService) Lock(context.Context, int64) (periods.Period, error)    { return f.period, f.err }
func (f *fakeService) Approve(context.Context, int64) (periods.Period, error) { return f.period, f.err }
func (f *fakeService) Close(context.Context, int64) (periods.Period, error)   { return f.period, f.err }

func (f *fakeService) SubmitForApproval(context.Context, int64) (periods.Period, error) {
	return f.period, f.err
}

func (f *fakeService) Unlock(_ context.Context, _ int64, reason string) (periods.Period, error) {
	f.reason = reason
	return f.period, f.err
}

func (f *fakeService) Reject(_ context.Context, _ int64, reason string) (periods.Period, error) {
	f.reason = reason
	return f.period, f.err
}

func newRouter(svc PeriodService) chi.Router {
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	return r
}

func TestTransitionMapsTaxonomyToStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid transition", shared.NewInvalidTransition("period", "OPEN", "IN_PROGRESS"), http.StatusConflict},
		{"validation", shared.NewValidation("a reason is required"), http.StatusBadRequest},
		{"policy violation", shared.NewPolicyViolation("period must be approved"), http.StatusUnprocessableEntity},
		{"conflict", shared.NewConflict("period", 1), http.StatusConflict},
		{"dependency unavailable", shared.NewDependencyUnavailable("template provider", nil), http.StatusServiceUnavailable},
		{"not found", shared.NewNotFound("period", 1), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(&fakeService{err: tc.err})
			req := httptest.NewRequest(http.MethodPost, "/periods/1/lock", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d (body %s)", tc.wantStatus, rec.Code, rec.Body.String())
			}
			var problem struct {
				Title  string `json:"title"`
				Detail string `json:"detail"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
				t.Fatalf("expected problem JSON, got %s", rec.Body.String())
			}
			if problem.Detail == "" {
				t.Fatalf("expected human-readable detail, got %s", rec.Body.String())
			}
		})
	}
}

func TestDependencyUnavailableCarriesRetryAfter(t *testing.T) {
	router := newRouter(&fakeService{err: shared.NewDependencyUnavailable("ledger", nil)})
	req := httptest.NewRequest(http.MethodPost, "/periods/1/start", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 503")
	}
}

func TestUnlockPassesReasonThrough(t *testing.T) {
	svc := &fakeService{period: periods.Period{ID: 1, Status: periods.StatusInProgress}}
	router := newRouter(svc)
	body := strings.NewReader(`{"reason":"late supplier invoices"}`)
	req := httptest.NewRequest(http.MethodPost, "/periods/1/unlock", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if svc.reason != "late supplier invoices" {
		t.Fatalf("expected reason forwarded, got %q", svc.reason)
	}
}

func TestInvalidPeriodIDRejected(t *testing.T) {
	router := newRouter(&fakeService{})
	req := httptest.NewRequest(http.MethodPost, "/periods/abc/lock", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}
