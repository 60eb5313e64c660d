package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts the run, deviation and statistics endpoints plus health probes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(correlate, recoverPanics, accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/readyz", s.ready)

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.RequestRun)
		r.Get("/{id}", s.GetRun)
	})
	r.Get("/deviations", s.GetDeviations)
	r.Get("/statistics", s.GetStatistics)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}
