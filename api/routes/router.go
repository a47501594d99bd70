package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/mesflow-backend/api/controllers"
	"github.com/angelmondragon/mesflow-backend/api/middleware"
	"github.com/angelmondragon/mesflow-backend/internal/fulfillment"
	"github.com/angelmondragon/mesflow-backend/internal/jobs"
	"github.com/angelmondragon/mesflow-backend/internal/mrp"
	"github.com/angelmondragon/mesflow-backend/internal/replenishment"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/mesflow-backend/pkg/redis"
)

// RedisStore backs request idempotency and answers the ready probe.
type RedisStore interface {
	pkgredis.IdempotencyStore
	controllers.Pinger
}

// Services are the domain entry points mounted under /api/v1.
type Services struct {
	Kanbans     replenishment.Fulfiller
	Jobs        jobs.StateMachine
	Fulfillment fulfillment.Picker
	MRP         mrp.Runner
	Queue       controllers.MRPQueue
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient RedisStore,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, cfg.Eventing.HTTPIdempotencyTTL, logg))

		r.Post("/kanbans/{kanbanId}/fulfill", controllers.KanbanFulfill(svc.Kanbans, logg))
		r.Post("/jobs/{jobId}/status", controllers.JobStatus(svc.Jobs, logg))
		r.Post("/stock-transfer-lines/{lineId}/pick", controllers.StockTransferLinePick(svc.Fulfillment, logg))
		r.Post("/mrp/run", controllers.MRPRun(svc.MRP, svc.Queue, logg))
	})

	return r
}
