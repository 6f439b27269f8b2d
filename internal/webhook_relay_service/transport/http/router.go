package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps collects what NewRouter mounts.
type RouterDeps struct {
	Webhook   *WebhookHandler
	Readiness *Readiness
	AppSecret string
	Logger    *slog.Logger
}

// NewRouter builds the service's HTTP surface. The webhook group has no
// request timeout: a delivery is always processed to completion.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "Webhook relay service is healthy"})
	})
	r.Get("/ready", deps.Readiness.Handler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/webhook", func(wr chi.Router) {
		wr.Get("/", deps.Webhook.HandleVerification)
		wr.Group(func(pr chi.Router) {
			pr.Use(deps.Readiness.Middleware)
			pr.Use(SignatureMiddleware(deps.AppSecret, deps.Logger))
			pr.Post("/", deps.Webhook.HandleDelivery)
		})
	})

	return r
}
