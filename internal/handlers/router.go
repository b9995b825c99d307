package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the HTTP surface of the labeling tool
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", h.HandleIndex)
	r.Handle("/static/*", h.HandleStatic())
	r.Get("/healthcheck", h.HandleHealthcheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.requireSession(h.HandleLogout))
		r.Get("/session", h.requireSession(h.HandleSession))
		r.Get("/images/current", h.requireSession(h.HandleCurrentImage))
		r.Post("/labels", h.requireSession(h.HandleSubmitLabel))
		r.Get("/stats", h.requireSession(h.HandleStats))
		r.Get("/tables/{name}", h.requireSession(h.HandleTable))
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/healthcheck" {
			return
		}
		slog.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}
