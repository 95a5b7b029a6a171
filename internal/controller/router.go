package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rmedeiros/payrouter/internal/infrastructure/config"
	"github.com/rmedeiros/payrouter/internal/infrastructure/observability"
	customMW "github.com/rmedeiros/payrouter/internal/middleware"
	"github.com/rmedeiros/payrouter/internal/service"
)

type RouterDeps struct {
	Pool           *pgxpool.Pool
	RedisClient    *redis.Client
	PaymentService *service.PaymentService
	SummaryService *service.SummaryService
	Metrics        *observability.Metrics
	CORSConfig     config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	paymentH := NewPaymentController(deps.PaymentService, deps.SummaryService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Post("/payments", paymentH.SubmitPayment)
	r.Get("/payments/{correlationId}", paymentH.GetPayment)
	r.Get("/payments-summary", paymentH.GetSummary)

	return r
}
