package http

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Readiness is flipped once the message store is reachable.
type Readiness struct {
	ready atomic.Bool
}

func NewReadiness() *Readiness {
	return &Readiness{}
}

func (r *Readiness) MarkReady() {
	r.ready.Store(true)
}

func (r *Readiness) IsReady() bool {
	return r.ready.Load()
}

// Middleware answers 503 until MarkReady has been called.
func (r *Readiness) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.IsReady() {
			w.Header().Set("Retry-After", "5")
			http.Error(w, "Service not ready", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// Handler serves GET /ready.
func (r *Readiness) Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !r.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "starting"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
