package handler

import (
	"context"

	"CrudAPI/internal/route"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	routeKey     contextKey = "crud_route"
)

// RouteInfo is the resolved target of a request.
type RouteInfo struct {
	Resource string
	Route    route.Route
	// ID is the formatted resource id, nil for collection routes.
	ID any
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id set by WithRequestID or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRoute(ctx context.Context, info RouteInfo) context.Context {
	return context.WithValue(ctx, routeKey, info)
}

// RouteFromContext is available to hooks and middlewares.
func RouteFromContext(ctx context.Context) (RouteInfo, bool) {
	info, ok := ctx.Value(routeKey).(RouteInfo)
	return info, ok
}
