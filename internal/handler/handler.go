// Package handler serves the CRUD routes of every resource an adapter
// exposes: it resolves the resource and route from the URL, parses the
// query string, runs the adapter call and renders the result as JSON.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"CrudAPI/internal/adapter"
	"CrudAPI/internal/cache"
	"CrudAPI/internal/logger"
	"CrudAPI/internal/query"
	"CrudAPI/internal/route"
)

// ResourceOptions overrides route exposure and id formatting for one resource.
type ResourceOptions struct {
	// Only, when non-nil, lists the exposed routes.
	Only    []route.RouteType
	Exclude []route.RouteType
	// FormatResourceID converts the id path segment; nil uses the handler default.
	FormatResourceID func(id string) any
}

type Options[Q any] struct {
	Adapter   adapter.Adapter[Q]
	Resources map[string]ResourceOptions
	// ExposeStrategy applies to resources without an Only list. Empty means all.
	ExposeStrategy   route.ExposeStrategy
	FormatResourceID func(id string) any
	DefaultPerPage   int

	// OnRequest runs before the adapter is called; an error aborts the request.
	OnRequest func(r *http.Request) error
	OnSuccess func(r *http.Request, result any)
	OnError   func(r *http.Request, err error)

	Middlewares []Middleware

	// Cache stores rendered GET responses for CacheTTL; nil or a zero TTL
	// disables it.
	Cache    cache.Cache
	CacheTTL time.Duration
	// CacheDependents lists the resources whose reads can embed or filter
	// on resource. A write bumps them together with resource. Nil bumps
	// every resource.
	CacheDependents func(resource string) []string
}

type Handler[Q any] struct {
	opts      Options[Q]
	resources []string
}

func New[Q any](opts Options[Q]) (*Handler[Q], error) {
	if opts.Adapter == nil {
		return nil, errors.New("handler: adapter is required")
	}
	if opts.ExposeStrategy == "" {
		opts.ExposeStrategy = route.ExposeAll
	}
	if opts.FormatResourceID == nil {
		opts.FormatResourceID = route.FormatResourceID
	}
	if opts.DefaultPerPage <= 0 {
		opts.DefaultPerPage = defaultPerPage
	}
	return &Handler[Q]{opts: opts, resources: opts.Adapter.Resources()}, nil
}

// response is a rendered result.
type response struct {
	status int
	body   []byte
}

func (h *Handler[Q]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	info, err := h.resolve(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	r = r.WithContext(withRoute(r.Context(), info))

	if h.opts.OnRequest != nil {
		if err := h.opts.OnRequest(r); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	cacheKey := h.cacheKey(r, info)
	if cacheKey != "" {
		if data, ok := h.cacheGet(r.Context(), cacheKey); ok {
			if h.opts.OnSuccess != nil {
				h.opts.OnSuccess(r, json.RawMessage(data))
			}
			w.Header().Set("X-Cache", "HIT")
			write(w, response{status: http.StatusOK, body: data})
			return
		}
	}

	resp, err := h.serve(r, info)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	switch info.Route.Type {
	case route.Create, route.Update, route.Delete:
		h.invalidate(r.Context(), info.Resource)
	default:
		if cacheKey != "" {
			h.cacheSet(r.Context(), cacheKey, resp.body)
		}
	}
	write(w, resp)
}

// resolve finds the resource and route of r and checks it is exposed.
func (h *Handler[Q]) resolve(r *http.Request) (RouteInfo, error) {
	// the escaped form keeps %2F inside the id segment and decodes ids once
	path := r.URL.EscapedPath()
	name, ok := route.ResourceFromURL(path, h.resources)
	if !ok {
		return RouteInfo{}, NewHTTPError(http.StatusNotFound, fmt.Sprintf("no resource matches %s", r.URL.Path))
	}
	rt, err := route.Classify(r.Method, path, name)
	if err != nil {
		return RouteInfo{}, NewHTTPError(http.StatusNotFound, err.Error())
	}

	ro := h.opts.Resources[name]
	exposed := route.AccessibleRoutes(ro.Only, ro.Exclude, h.opts.ExposeStrategy)
	if rt.Type == route.None || !route.IsAccessible(exposed, rt.Type) {
		return RouteInfo{}, NewHTTPError(http.StatusNotFound, fmt.Sprintf("%s %s is not exposed", r.Method, r.URL.Path))
	}

	info := RouteInfo{Resource: name, Route: rt}
	if rt.HasID() {
		format := h.opts.FormatResourceID
		if ro.FormatResourceID != nil {
			format = ro.FormatResourceID
		}
		info.ID = format(rt.ResourceID)
	}
	return info, nil
}

func (h *Handler[Q]) serve(r *http.Request, info RouteInfo) (response, error) {
	ctx := r.Context()
	a := h.opts.Adapter

	parsed, err := query.Parse(r.URL.RawQuery)
	if err != nil {
		return response{}, err
	}

	var pageOpts *adapter.PaginationOptions
	if info.Route.Type == route.ReadAll && parsed.Page != nil {
		paged, opts, err := paginate(parsed, h.opts.DefaultPerPage)
		if err != nil {
			return response{}, err
		}
		parsed, pageOpts = paged, &opts
	}

	q, err := a.ParseQuery(info.Resource, parsed)
	if err != nil {
		return response{}, err
	}

	status := http.StatusOK
	var result any
	switch info.Route.Type {
	case route.ReadAll:
		records, err := a.GetAll(ctx, info.Resource, q)
		if err != nil {
			return response{}, err
		}
		if records == nil {
			records = []adapter.Record{}
		}
		if pageOpts == nil {
			result = records
			break
		}
		pagination, err := a.GetPaginationData(ctx, info.Resource, q, *pageOpts)
		if err != nil {
			return response{}, err
		}
		result = PagedResult{Data: records, Pagination: pagination}

	case route.ReadOne:
		record, err := h.existing(ctx, info, q)
		if err != nil {
			return response{}, err
		}
		result = record

	case route.Create:
		body, err := decodeBody(r)
		if err != nil {
			return response{}, err
		}
		created, err := a.Create(ctx, info.Resource, body, q)
		if err != nil {
			return response{}, err
		}
		status, result = http.StatusCreated, created

	case route.Update:
		body, err := decodeBody(r)
		if err != nil {
			return response{}, err
		}
		if _, err := h.existing(ctx, info, q); err != nil {
			return response{}, err
		}
		updated, err := a.Update(ctx, info.Resource, info.ID, body, q)
		if err != nil {
			return response{}, err
		}
		result = updated

	case route.Delete:
		if _, err := h.existing(ctx, info, q); err != nil {
			return response{}, err
		}
		deleted, err := a.Delete(ctx, info.Resource, info.ID, q)
		if err != nil {
			return response{}, err
		}
		result = deleted
	}

	mc := &MiddlewareContext{Request: r, Result: result}
	if err := runMiddlewares(h.opts.Middlewares, mc); err != nil {
		return response{}, err
	}
	if h.opts.OnSuccess != nil {
		h.opts.OnSuccess(r, mc.Result)
	}

	data, err := json.Marshal(mc.Result)
	if err != nil {
		return response{}, fmt.Errorf("encode %s response: %w", info.Resource, err)
	}
	return response{status: status, body: data}, nil
}

// existing fetches the targeted row, 404 when it does not exist.
func (h *Handler[Q]) existing(ctx context.Context, info RouteInfo, q Q) (adapter.Record, error) {
	record, err := h.opts.Adapter.GetOne(ctx, info.Resource, info.ID, q)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, NewHTTPError(http.StatusNotFound, fmt.Sprintf("%s %v not found", info.Resource, info.ID))
	}
	return record, nil
}

// decodeBody reads a JSON object; an empty body is an empty record.
func decodeBody(r *http.Request) (adapter.Record, error) {
	if r.Body == nil {
		return adapter.Record{}, nil
	}
	var body adapter.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return adapter.Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if body == nil {
		return nil, errBadBody
	}
	return body, nil
}

func write(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	if _, err := w.Write(resp.body); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
	}
}
