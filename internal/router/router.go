// Package router mounts the CRUD handler and the service endpoints.
package router

import (
	"net/http"
	"time"

	"CrudAPI/internal/auth"
	"CrudAPI/internal/config"
	"CrudAPI/internal/handler"
	"CrudAPI/internal/logger"

	"github.com/google/uuid"
)

// New builds the service mux: the CRUD handler under cfg.APIPrefix, plus
// /healthz and /metrics. validator may be nil when auth is disabled.
func New(cfg *config.Config, crud http.Handler, validator *auth.JWTValidator, metrics *Metrics) http.Handler {
	mux := http.NewServeMux()

	api := crud
	if validator != nil {
		api = withAuth(validator, api)
	}
	mux.Handle(cfg.APIPrefix+"/", withCORS(cfg.CORS, api))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return withRequestID(withLogging(metrics, mux))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withRequestID reuses an incoming X-Request-ID or generates one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(handler.WithRequestID(r.Context(), id)))
	})
}

func withLogging(metrics *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)
		if metrics != nil {
			metrics.observeRequest(r.Method, sw.status, elapsed)
		}

		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": elapsed.Milliseconds(),
			"request_id":  handler.RequestID(r.Context()),
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}

// withAuth rejects requests without a valid bearer token.
func withAuth(v *auth.JWTValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed, err := v.Authenticate(r)
		if err != nil {
			logger.Warn("auth_failed", map[string]any{
				"path":       r.URL.Path,
				"request_id": handler.RequestID(r.Context()),
				"error":      err.Error(),
			})
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", "Bearer")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		next.ServeHTTP(w, authed)
	})
}
