package http

import (
	"github.com/escapehq/escape/internal/idempotency"
	"github.com/escapehq/escape/internal/observability"
	"github.com/escapehq/escape/internal/rateLimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)
	r.Use(JWTMiddleware(jwtSecret))
	r.Use(RateLimitMiddleware(rl))
	r.Use(IdempotencyMiddleware(idemp))

	r.Post("/v1/bookings", h.ReserveBooking)
	r.Post("/v1/bookings/{id}/order", h.CreateOrder)
	r.Post("/v1/bookings/{id}/confirm", h.ConfirmBooking)
	r.Post("/v1/payments/validate", h.ValidatePayment)
	r.Get("/v1/users/{id}/bookings", h.GetUserBookings)
	r.Get("/v1/users/{id}/bookings/partitioned", h.GetPartitionedBookings)
	r.Get("/v1/experiences", h.ListExperiences)
	r.Get("/v1/experiences/{id}", h.GetExperience)
	r.Put("/v1/users/{id}", h.UpsertUser)
	r.Get("/v1/users/{id}/favorites", h.GetFavorites)
	r.Post("/v1/users/{id}/favorites/{experienceId}", h.ToggleFavorite)
	r.Post("/v1/users/{id}/following", h.ToggleFollow)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
