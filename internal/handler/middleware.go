package handler

import "net/http"

// MiddlewareContext is shared by the middleware chain of one request.
// Result may be replaced; the final value is what gets rendered.
type MiddlewareContext struct {
	Request *http.Request
	Result  any
}

// Middleware runs around the rendering of a successful result. It must
// call next to continue the chain.
type Middleware func(ctx *MiddlewareContext, next func() error) error

func runMiddlewares(mws []Middleware, mc *MiddlewareContext) error {
	var run func(i int) error
	run = func(i int) error {
		if i >= len(mws) {
			return nil
		}
		return mws[i](mc, func() error { return run(i + 1) })
	}
	return run(0)
}
