package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"w2s.io/advisor/internal/metrics"
)

func NewRouter(apiHandler *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(metrics.HTTPMetricsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", apiHandler.ListUsersHandler)
			r.Post("/", apiHandler.CreateUserHandler)
			r.Get("/me", apiHandler.GetMeHandler)
			r.Patch("/me", apiHandler.UpdateMeHandler)
			r.Get("/me/referrals", apiHandler.ReferralsHandler)
			r.Patch("/{id}", apiHandler.UpdateUserHandler)
			r.Delete("/{id}", apiHandler.DeleteUserHandler)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", apiHandler.ListMessagesHandler)
			r.Get("/filter", apiHandler.FilterMessagesHandler)
			r.Post("/", apiHandler.CreateMessageHandler)
			r.Delete("/{id}", apiHandler.DeleteMessageHandler)
		})

		r.Get("/conversations", apiHandler.ListConversationsHandler)
		r.Delete("/conversations/{conversationID}", apiHandler.DeleteConversationHandler)

		r.Route("/saved-conversations", func(r chi.Router) {
			r.Get("/", apiHandler.ListSavedHandler)
			r.Get("/filter", apiHandler.FilterSavedHandler)
			r.Post("/", apiHandler.CreateSavedHandler)
			r.Delete("/{id}", apiHandler.DeleteSavedHandler)
		})

		r.Get("/chat-settings", apiHandler.GetChatSettingsHandler)
		r.Post("/chat-settings", apiHandler.CreateChatSettingsHandler)

		r.Route("/businesses", func(r chi.Router) {
			r.Get("/", apiHandler.ListBusinessesHandler)
			r.Post("/", apiHandler.CreateBusinessHandler)
			r.Patch("/{id}", apiHandler.UpdateBusinessHandler)
			r.Delete("/{id}", apiHandler.DeleteBusinessHandler)
			r.Post("/{id}/primary", apiHandler.SetPrimaryBusinessHandler)
		})

		r.Route("/keys", func(r chi.Router) {
			r.Get("/", apiHandler.ListKeysHandler)
			r.Post("/", apiHandler.CreateKeyHandler)
			r.Patch("/{id}", apiHandler.UpdateKeyHandler)
			r.Delete("/{id}", apiHandler.DeleteKeyHandler)
		})

		r.Get("/admin/analytics", apiHandler.AnalyticsHandler)
		r.Get("/admin/users", apiHandler.UserStatsHandler)

		r.Post("/ai/chat", apiHandler.AIChatHandler)
	})

	return r
}

// requestLogger writes one access log line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
