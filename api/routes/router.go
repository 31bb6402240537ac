package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/assettrack-backend/api/controllers"
	assetcontrollers "github.com/angelmondragon/assettrack-backend/api/controllers/assets"
	pocontrollers "github.com/angelmondragon/assettrack-backend/api/controllers/purchaseorders"
	"github.com/angelmondragon/assettrack-backend/api/middleware"
	"github.com/angelmondragon/assettrack-backend/internal/assets"
	"github.com/angelmondragon/assettrack-backend/internal/assignments"
	"github.com/angelmondragon/assettrack-backend/internal/cascade"
	"github.com/angelmondragon/assettrack-backend/internal/purchaseorders"
	"github.com/angelmondragon/assettrack-backend/internal/query"
	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               db.Pinger
	Redis            redis.Pinger
	IdempotencyStore redis.IdempotencyStore
	MetricsHandler   http.Handler

	Assets         assets.Service
	Assignments    assignments.Service
	Cascade        cascade.Service
	PurchaseOrders purchaseorders.Service
	Query          query.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, p.DB, p.Redis))
	})

	metricsHandler := p.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.IdempotencyStore, cfg.Eventing.IdempotencyTTL, logg))

		r.Route("/assets", func(r chi.Router) {
			r.With(middleware.RequireMutator(logg)).Post("/", assetcontrollers.Register(p.Assets, logg))

			r.Route("/{assetId}", func(r chi.Router) {
				r.Get("/", assetcontrollers.Get(p.Query, logg))
				r.Get("/assignment", assetcontrollers.CurrentAssignment(p.Query, logg))
				r.Get("/status-history", assetcontrollers.StatusHistory(p.Query, logg))
				r.Get("/assignment-history", assetcontrollers.AssignmentHistory(p.Query, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireMutator(logg))
					r.Post("/status", assetcontrollers.ChangeStatus(p.Assets, logg))
					r.Post("/status/cascade", assetcontrollers.ChangeStatusCascade(p.Cascade, logg))
					r.Post("/assignment", assetcontrollers.Assign(p.Assignments, p.Cascade, logg))
					r.Delete("/assignment", assetcontrollers.Unassign(p.Assignments, logg))
				})
			})
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/{poNumber}", pocontrollers.Get(p.PurchaseOrders, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMutator(logg))
				r.Post("/", pocontrollers.Create(p.PurchaseOrders, logg))
				r.Post("/migrations", pocontrollers.Migrate(p.Cascade, logg))
			})
		})
	})

	return r
}
