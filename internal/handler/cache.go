package handler

import (
	"context"
	"fmt"
	"net/http"

	"CrudAPI/internal/cache"
	"CrudAPI/internal/logger"
)

// cacheKey returns "" when the response of r must not be cached.
// Cache failures only cost a miss.
func (h *Handler[Q]) cacheKey(r *http.Request, info RouteInfo) string {
	if h.opts.Cache == nil || h.opts.CacheTTL <= 0 || r.Method != http.MethodGet {
		return ""
	}
	version, err := h.opts.Cache.Version(r.Context(), info.Resource)
	if err != nil {
		logger.Warn("cache_version_failed", map[string]any{"resource": info.Resource, "error": err.Error()})
		return ""
	}
	id := ""
	if info.ID != nil {
		id = fmt.Sprint(info.ID)
	}
	key, err := cache.Key(info.Resource, version, string(info.Route.Type), id, r.URL.Query())
	if err != nil {
		logger.Warn("cache_key_failed", map[string]any{"resource": info.Resource, "error": err.Error()})
		return ""
	}
	return key
}

func (h *Handler[Q]) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := h.opts.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache_get_failed", map[string]any{"key": key, "error": err.Error()})
		return nil, false
	}
	return data, ok
}

func (h *Handler[Q]) cacheSet(ctx context.Context, key string, data []byte) {
	if err := h.opts.Cache.Set(ctx, key, data, h.opts.CacheTTL); err != nil {
		logger.Warn("cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// invalidate bumps resource and every resource whose cached reads may
// include its rows.
func (h *Handler[Q]) invalidate(ctx context.Context, resource string) {
	if h.opts.Cache == nil || h.opts.CacheTTL <= 0 {
		return
	}
	targets := h.resources
	if h.opts.CacheDependents != nil {
		targets = append([]string{resource}, h.opts.CacheDependents(resource)...)
	}
	for _, name := range targets {
		if err := h.opts.Cache.Bump(ctx, name); err != nil {
			logger.Error("cache_bump_failed", map[string]any{"resource": name, "error": err.Error()})
		}
	}
}
