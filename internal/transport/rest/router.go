package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/Dhia9030/CarRental-sub000/internal/auth"
	"github.com/Dhia9030/CarRental-sub000/internal/booking"
	"github.com/Dhia9030/CarRental-sub000/internal/chat"
	"github.com/Dhia9030/CarRental-sub000/internal/payment"
	"github.com/Dhia9030/CarRental-sub000/internal/realtime"
	"github.com/Dhia9030/CarRental-sub000/internal/refund"
	"github.com/Dhia9030/CarRental-sub000/internal/transport/middleware"
	"github.com/Dhia9030/CarRental-sub000/internal/transport/swagger"
)

// Handlers carries every route group the server mounts. Nil entries are
// skipped, which keeps partial wiring (tests, tools) possible.
type Handlers struct {
	Auth        *auth.Handler
	AuthMW      *auth.Middleware
	Booking     *booking.Handler
	Payment     *payment.Handler
	Integration *payment.IntegrationHandler
	Webhook     *payment.WebhookHandler
	Refund      *refund.Handler
	Realtime    *realtime.Handler
	Chat        *chat.Gateway
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// OpenAPI spec and swagger UI live outside the API prefix.
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Processor callbacks authenticate by payload, not bearer token.
		if h.Webhook != nil {
			h.Webhook.RegisterRoutes(r)
		}

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
			})
		}

		if h.AuthMW == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.AuthMW.Authenticate)

			if h.Booking != nil {
				h.Booking.RegisterRoutes(pr)
			}
			if h.Payment != nil {
				h.Payment.RegisterRoutes(pr)
			}
			if h.Integration != nil {
				h.Integration.RegisterRoutes(pr)
			}
			if h.Refund != nil {
				h.Refund.RegisterRoutes(pr)
			}
			if h.Realtime != nil {
				h.Realtime.RegisterRoutes(pr)
			}
			if h.Chat != nil {
				h.Chat.RegisterRoutes(pr)
			}
		})
	})
}
