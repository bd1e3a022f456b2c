package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	Health        *HealthHandler
	Metrics       *MetricsHandler
	Trades        *TradesHandler
	Quotes        *QuoteHandler
	WSHandler     http.Handler
	InternalToken string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS for the dashboard during development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Internal-Token")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(SecurityHeaders)

	r.Get("/health", d.Health.ServeHTTP)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/accounts/{accountID}/metrics", d.Metrics.AccountMetrics)
		r.Get("/accounts/{accountID}/trades", d.Trades.AccountTrades)
		r.Get("/events/ws", d.WSHandler.ServeHTTP)
	})
	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAuth(d.InternalToken))
		r.Post("/quotes", d.Quotes.Push)
	})
	return r
}
