package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dealbase/internal/config"
	"dealbase/internal/middleware"
	"dealbase/internal/services"
)

// Deps carries everything the router needs.
type Deps struct {
	Config     *config.Config
	Deals      *services.DealService
	Intake     *services.IntakeService
	UnitMix    *services.UnitMixService
	Valuations *services.ValuationService
	Registry   *prometheus.Registry
	Logger     *slog.Logger
}

// NewRouter builds the full API surface.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	deals := NewDealHandler(deps.Deals, logger)
	intake := NewIntakeHandler(deps.Intake, deps.Config.Server.MaxUploadBytes, logger)
	mix := NewUnitMixHandler(deps.UnitMix, logger)
	valuations := NewValuationHandler(deps.Valuations, logger)
	health := NewHealthHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.HealthCheck)

		r.Route("/deals", func(r chi.Router) {
			r.Post("/", deals.Create)
			r.Get("/", deals.List)

			r.Route("/{dealID}", func(r chi.Router) {
				r.Get("/", deals.Get)
				r.Get("/audit", deals.AuditTrail)

				r.Post("/documents/rent-roll", intake.UploadRentRoll)
				r.Post("/documents/t12", intake.UploadFinancials)
				r.Get("/documents", intake.ListDocuments)
				r.Get("/units", intake.ListUnits)

				r.Get("/unit-mix", mix.Get)
				r.Post("/unit-mix/derive", mix.Derive)
				r.Post("/unit-mix/groups", mix.AddGroup)

				r.Post("/valuations", valuations.Run)
				r.Get("/valuations", valuations.List)
			})
		})

		r.Route("/unit-mix/groups/{groupID}", func(r chi.Router) {
			r.Patch("/", mix.EditGroup)
			r.Post("/unlink", mix.UnlinkGroup)
			r.Delete("/", mix.DeleteGroup)
		})
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	return r
}
