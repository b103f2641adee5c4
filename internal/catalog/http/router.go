package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/gorilla/mux"
)

func NewRouter(h *Handler, log *slog.Logger, rec *metrics.Recorder) *mux.Router {
	r := mux.NewRouter()
	r.Use(observe(log, rec))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	h.RegisterRoutes(r)
	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// observe logs and counts every request under its route template.
func observe(log *slog.Logger, rec *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			r = r.WithContext(logger.WithCtx(r.Context(), log))

			next.ServeHTTP(sw, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					path = tpl
				}
			}
			elapsed := time.Since(start)
			rec.ObserveRequest(r.Method, path, strconv.Itoa(sw.status), float64(elapsed.Milliseconds()))
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Int64("duration_ms", elapsed.Milliseconds()),
			)
		})
	}
}
