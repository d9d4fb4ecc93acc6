package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidorozcoq/mercadito-backend/api/controllers"
	"github.com/davidorozcoq/mercadito-backend/api/middleware"
	"github.com/davidorozcoq/mercadito-backend/internal/escrow"
	"github.com/davidorozcoq/mercadito-backend/internal/events"
	"github.com/davidorozcoq/mercadito-backend/internal/orders"
	"github.com/davidorozcoq/mercadito-backend/internal/payments"
	"github.com/davidorozcoq/mercadito-backend/pkg/config"
	"github.com/davidorozcoq/mercadito-backend/pkg/db"
	"github.com/davidorozcoq/mercadito-backend/pkg/logger"
	"github.com/davidorozcoq/mercadito-backend/pkg/metrics"
	"github.com/davidorozcoq/mercadito-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer

	Orders   orders.Service
	Escrow   escrow.Service
	Payments payments.Service
	Events   events.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(),
	)

	// A nil *redis.Client must stay a nil interface so the readiness check
	// and the middlewares disable themselves instead of panicking.
	var cache db.Pinger
	var idemStore redis.IdempotencyStore
	var limiter middleware.RateLimiterStore
	if deps.Redis != nil {
		cache = deps.Redis
		idemStore = deps.Redis
		limiter = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, cache))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	ingestPolicy := middleware.NewRateLimitPolicy(
		"events_ingest",
		cfg.Events.IngestRateWindow,
		cfg.Events.IngestRateLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg, cfg.Idempotency.TTL))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(deps.Orders, logg))
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/pay", controllers.OrderPay(deps.Orders, logg))
			r.Post("/{orderId}/complete", controllers.OrderComplete(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
		})

		r.Post("/escrow/step", controllers.EscrowStep(deps.Escrow, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/capture", controllers.PaymentCapture(deps.Payments, logg))
			r.Post("/refund", controllers.PaymentRefund(deps.Payments, logg))
		})

		r.Route("/events", func(r chi.Router) {
			r.With(middleware.RateLimit(ingestPolicy, limiter, logg)).
				Post("/", controllers.EventIngest(deps.Events, logg))
			r.Get("/", controllers.EventsByOrder(deps.Events, logg))
		})
	})

	return r
}
