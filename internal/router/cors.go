package router

import (
	"net/http"
	"strings"

	"CrudAPI/internal/config"
)

const (
	corsAllowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, X-Request-ID"
	corsExposeHeaders = "X-Request-ID, X-Cache"
)

// withCORS adds CORS headers and answers preflight requests.
func withCORS(cfg config.CORSConfig, next http.Handler) http.Handler {
	origins := parseOrigins(cfg.AllowOrigin)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		originValue, varyOrigin := resolveAllowOrigin(origins, cfg.AllowCredentials, r.Header.Get("Origin"))
		if originValue != "" {
			h.Set("Access-Control-Allow-Origin", originValue)
		}
		if varyOrigin {
			h.Add("Vary", "Origin")
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Expose-Headers", corsExposeHeaders)

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resolveAllowOrigin picks the Allow-Origin value. With credentials a
// wildcard echoes the request origin, which browsers require.
func resolveAllowOrigin(origins []string, allowCredentials bool, requestOrigin string) (value string, varyOrigin bool) {
	if len(origins) == 0 {
		return "*", false
	}
	for _, o := range origins {
		if o != "*" {
			continue
		}
		if allowCredentials && requestOrigin != "" {
			return requestOrigin, true
		}
		return "*", false
	}
	if requestOrigin == "" {
		return "", true
	}
	for _, o := range origins {
		if o == requestOrigin {
			return requestOrigin, true
		}
	}
	return "", true
}

func parseOrigins(allowOrigin string) []string {
	var res []string
	for _, p := range strings.Split(allowOrigin, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
