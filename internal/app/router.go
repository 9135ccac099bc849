package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	activityhttp "github.com/meridian-erp/meridian/internal/activity/http"
	checklisthttp "github.com/meridian-erp/meridian/internal/checklist/http"
	entrieshttp "github.com/meridian-erp/meridian/internal/entries/http"
	"github.com/meridian-erp/meridian/internal/observability"
	periodshttp "github.com/meridian-erp/meridian/internal/periods/http"
	reconhttp "github.com/meridian-erp/meridian/internal/recon/http"
	"github.com/meridian-erp/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	PeriodsHandler   *periodshttp.Handler
	ChecklistHandler *checklisthttp.Handler
	ReconHandler     *reconhttp.Handler
	EntriesHandler   *entrieshttp.Handler
	ActivityHandler  *activityhttp.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.PeriodsHandler != nil {
		params.PeriodsHandler.MountRoutes(r)
	}
	if params.ChecklistHandler != nil {
		params.ChecklistHandler.MountRoutes(r)
	}
	if params.ReconHandler != nil {
		params.ReconHandler.MountRoutes(r)
	}
	if params.EntriesHandler != nil {
		params.EntriesHandler.MountRoutes(r)
	}
	if params.ActivityHandler != nil {
		params.ActivityHandler.MountRoutes(r)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			params.JobsHandler.MountRoutes(jr)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
