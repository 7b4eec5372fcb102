package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/naricare/consultation-scheduling/internal/consultation"
)

type RouterConfig struct {
	Service *consultation.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Consultation endpoints
	r.Post("/consultations", bookConsultationHandler(cfg.Service))
	r.Get("/consultations", listConsultationsHandler(cfg.Service))
	r.Get("/consultations/{id}", getConsultationHandler(cfg.Service))
	r.Post("/consultations/{id}/start", startConsultationHandler(cfg.Service))
	r.Post("/consultations/{id}/join", joinConsultationHandler(cfg.Service))
	r.Post("/consultations/{id}/cancel", cancelConsultationHandler(cfg.Service))
	r.Post("/consultations/{id}/complete", completeConsultationHandler(cfg.Service))
	r.Post("/consultations/{id}/reschedule", rescheduleConsultationHandler(cfg.Service))

	// Expert availability
	r.Get("/experts/{id}/slots", expertSlotsHandler(cfg.Service))

	return r
}
