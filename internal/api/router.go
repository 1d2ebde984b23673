package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/saude/clinic-scheduling/internal/clinic"
)

type RouterConfig struct {
	Service *clinic.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Read endpoints
	r.Get("/", listClinicsHandler(cfg.Service))
	r.Get("/c/{clinic}/", listSpecialtiesHandler(cfg.Service))
	r.Get("/c/{clinic}/{specialty}/", listFreeSlotsHandler(cfg.Service))

	// Booking endpoints; both verbs per endpoint mirror the public contract.
	r.Put("/a/{clinic}/registar/", registerHandler(cfg.Service))
	r.Post("/a/{clinic}/registar/", registerHandler(cfg.Service))
	r.Delete("/a/{clinic}/cancelar/", cancelHandler(cfg.Service))
	r.Post("/a/{clinic}/cancelar/", cancelHandler(cfg.Service))

	return r
}
