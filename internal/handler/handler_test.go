package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"CrudAPI/internal/adapter"
	"CrudAPI/internal/cache"
	"CrudAPI/internal/query"
	"CrudAPI/internal/route"

	"github.com/google/go-cmp/cmp"
)

// fakeAdapter keeps rows in memory and uses the ParsedQuery as its query type.
type fakeAdapter struct {
	mu       sync.Mutex
	rows     map[string]map[any]adapter.Record
	nextID   int64
	calls    []string
	lastID   any
	lastBody adapter.Record
	parsed   *query.ParsedQuery
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		rows: map[string]map[any]adapter.Record{
			"users": {
				int64(1): {"id": int64(1), "name": "Ann"},
				int64(2): {"id": int64(2), "name": "Bob"},
				int64(3): {"id": int64(3), "name": "Cid"},
			},
			"user_roles": {},
		},
		nextID: 3,
	}
}

func (f *fakeAdapter) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAdapter) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAdapter) Resources() []string { return []string{"users", "user_roles"} }

func (f *fakeAdapter) ParseQuery(resource string, parsed *query.ParsedQuery) (*query.ParsedQuery, error) {
	f.record("parse")
	f.parsed = parsed
	return parsed, nil
}

func (f *fakeAdapter) sorted(resource string) []adapter.Record {
	var out []adapter.Record
	for _, r := range f.rows[resource] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["id"].(int64) < out[j]["id"].(int64) })
	return out
}

func (f *fakeAdapter) GetAll(_ context.Context, resource string, q *query.ParsedQuery) ([]adapter.Record, error) {
	f.record("getAll")
	rows := f.sorted(resource)
	if q.Skip != nil {
		if *q.Skip >= len(rows) {
			return nil, nil
		}
		rows = rows[*q.Skip:]
	}
	if q.Limit != nil && *q.Limit < len(rows) {
		rows = rows[:*q.Limit]
	}
	return rows, nil
}

func (f *fakeAdapter) GetOne(_ context.Context, resource string, id any, _ *query.ParsedQuery) (adapter.Record, error) {
	f.record("getOne")
	f.lastID = id
	return f.rows[resource][id], nil
}

func (f *fakeAdapter) Create(_ context.Context, resource string, body adapter.Record, _ *query.ParsedQuery) (adapter.Record, error) {
	f.record("create")
	f.nextID++
	rec := adapter.Record{"id": f.nextID}
	for k, v := range body {
		rec[k] = v
	}
	f.rows[resource][f.nextID] = rec
	f.lastBody = body
	return rec, nil
}

func (f *fakeAdapter) Update(_ context.Context, resource string, id any, body adapter.Record, _ *query.ParsedQuery) (adapter.Record, error) {
	f.record("update")
	rec := f.rows[resource][id]
	for k, v := range body {
		rec[k] = v
	}
	f.lastBody = body
	return rec, nil
}

func (f *fakeAdapter) Delete(_ context.Context, resource string, id any, _ *query.ParsedQuery) (adapter.Record, error) {
	f.record("delete")
	rec := f.rows[resource][id]
	delete(f.rows[resource], id)
	return rec, nil
}

func (f *fakeAdapter) GetPaginationData(_ context.Context, resource string, _ *query.ParsedQuery, opts adapter.PaginationOptions) (adapter.PaginationData, error) {
	f.record("pagination")
	return adapter.NewPaginationData(int64(len(f.rows[resource])), opts), nil
}

func newTestHandler(t *testing.T, f *fakeAdapter, mutate func(*Options[*query.ParsedQuery])) *Handler[*query.ParsedQuery] {
	t.Helper()
	opts := Options[*query.ParsedQuery]{Adapter: f}
	if mutate != nil {
		mutate(&opts)
	}
	h, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestNewRequiresAdapter(t *testing.T) {
	if _, err := New(Options[*query.ParsedQuery]{}); err == nil {
		t.Fatalf("expected error without adapter")
	}
}

func TestReadAll(t *testing.T) {
	h := newTestHandler(t, newFakeAdapter(), nil)
	w := do(h, http.MethodGet, "/api/users", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	got := decode[[]map[string]any](t, w)
	want := []map[string]any{
		{"id": float64(1), "name": "Ann"},
		{"id": float64(2), "name": "Bob"},
		{"id": float64(3), "name": "Cid"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestReadAllEmptyIsArray(t *testing.T) {
	h := newTestHandler(t, newFakeAdapter(), nil)
	w := do(h, http.MethodGet, "/api/user_roles", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestReadOne(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, nil)

	w := do(h, http.MethodGet, "/api/users/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[map[string]any](t, w); got["name"] != "Bob" {
		t.Fatalf("unexpected body %v", got)
	}
	if f.lastID != int64(2) {
		t.Fatalf("id not formatted: %#v", f.lastID)
	}
}

func TestReadOneEscapedID(t *testing.T) {
	cases := map[string]string{
		"/api/users/a%2520b": "a%20b",
		"/api/users/a%2Fb":   "a/b",
		"/api/users/a%20b":   "a b",
	}
	for target, want := range cases {
		f := newFakeAdapter()
		h := newTestHandler(t, f, nil)
		if w := do(h, http.MethodGet, target, ""); w.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d", target, w.Code)
		}
		if f.count("getOne") != 1 || f.lastID != want {
			t.Fatalf("%s: id = %#v, want %q (calls=%v)", target, f.lastID, want, f.calls)
		}
	}
}

func TestReadOneMissing(t *testing.T) {
	h := newTestHandler(t, newFakeAdapter(), nil)
	w := do(h, http.MethodGet, "/api/users/42", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[errorBody](t, w)
	if body.Error != "Not Found: users 42 not found" {
		t.Fatalf("unexpected error %q", body.Error)
	}
}

func TestCreate(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, nil)

	w := do(h, http.MethodPost, "/api/users", `{"name":"Dee"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if diff := cmp.Diff(adapter.Record{"name": "Dee"}, f.lastBody); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if got := decode[map[string]any](t, w); got["id"] != float64(4) {
		t.Fatalf("unexpected created row %v", got)
	}
}

func TestCreateRejectsBadBody(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, nil)

	for _, body := range []string{`{"name":`, `[1,2]`, `null`} {
		w := do(h, http.MethodPost, "/api/users", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", body, w.Code)
		}
	}
	if f.count("create") != 0 {
		t.Fatalf("create must not run on a bad body")
	}
}

func TestUpdate(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, nil)

	w := do(h, http.MethodPatch, "/api/users/1", `{"name":"Anna"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[map[string]any](t, w); got["name"] != "Anna" {
		t.Fatalf("unexpected body %v", got)
	}
	w = do(h, http.MethodPut, "/api/users/1", `{"name":"Annie"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", w.Code)
	}
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, nil)

	if w := do(h, http.MethodPut, "/api/users/9", `{"name":"x"}`); w.Code != http.StatusNotFound {
		t.Fatalf("update status = %d", w.Code)
	}
	if w := do(h, http.MethodDelete, "/api/users/9", ""); w.Code != http.StatusNotFound {
		t.Fatalf("delete status = %d", w.Code)
	}
	if f.count("update") != 0 || f.count("delete") != 0 {
		t.Fatalf("writes must not run for a missing row: %v", f.calls)
	}
}

func TestDelete(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, nil)

	w := do(h, http.MethodDelete, "/api/users/3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[map[string]any](t, w); got["name"] != "Cid" {
		t.Fatalf("unexpected body %v", got)
	}
	if _, ok := f.rows["users"][int64(3)]; ok {
		t.Fatalf("row not deleted")
	}
}

func TestNotFoundRoutes(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, func(o *Options[*query.ParsedQuery]) {
		o.Resources = map[string]ResourceOptions{
			"users":      {Exclude: []route.RouteType{route.Delete}},
			"user_roles": {Only: []route.RouteType{route.ReadAll}},
		}
	})

	cases := []struct{ method, target string }{
		{http.MethodGet, "/api/accounts"},
		{http.MethodPost, "/api/users/1"},
		{http.MethodDelete, "/api/users"},
		{http.MethodDelete, "/api/users/1"},
		{http.MethodGet, "/api/user_roles/1"},
		{http.MethodHead, "/api/users"},
	}
	for _, c := range cases {
		if w := do(h, c.method, c.target, ""); w.Code != http.StatusNotFound {
			t.Fatalf("%s %s: status = %d", c.method, c.target, w.Code)
		}
	}
	if w := do(h, http.MethodGet, "/api/user_roles", ""); w.Code != http.StatusOK {
		t.Fatalf("only route must stay exposed, got %d", w.Code)
	}
	if f.count("parse") != 1 {
		t.Fatalf("adapter reached for unexposed routes: %v", f.calls)
	}
}

func TestExposeNone(t *testing.T) {
	h := newTestHandler(t, newFakeAdapter(), func(o *Options[*query.ParsedQuery]) {
		o.ExposeStrategy = route.ExposeNone
		o.Resources = map[string]ResourceOptions{"users": {Only: []route.RouteType{route.ReadOne}}}
	})
	if w := do(h, http.MethodGet, "/api/users", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/api/users/1", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/api/user_roles", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestFormatResourceID(t *testing.T) {
	f := newFakeAdapter()
	var seen []string
	h := newTestHandler(t, f, func(o *Options[*query.ParsedQuery]) {
		o.FormatResourceID = func(id string) any {
			seen = append(seen, "global:"+id)
			return id
		}
		o.Resources = map[string]ResourceOptions{
			"user_roles": {FormatResourceID: func(id string) any {
				seen = append(seen, "roles:"+id)
				return id
			}},
		}
	})

	do(h, http.MethodGet, "/api/users/bar", "")
	do(h, http.MethodGet, "/api/user_roles/baz", "")
	if diff := cmp.Diff([]string{"global:bar", "roles:baz"}, seen); diff != "" {
		t.Fatalf("format calls mismatch (-want +got):\n%s", diff)
	}
	if f.lastID != "baz" {
		t.Fatalf("lastID = %#v", f.lastID)
	}
}

func TestPagination(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, nil)

	w := do(h, http.MethodGet, "/api/users?page=2&limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	got := decode[PagedResult](t, w)
	want := PagedResult{
		Data:       []adapter.Record{{"id": float64(3), "name": "Cid"}},
		Pagination: adapter.PaginationData{Total: 3, PageCount: 2, Page: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
	if *f.parsed.Skip != 2 || *f.parsed.Limit != 2 {
		t.Fatalf("skip/limit = %d/%d", *f.parsed.Skip, *f.parsed.Limit)
	}
}

func TestPaginationDefaultsPerPage(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, func(o *Options[*query.ParsedQuery]) { o.DefaultPerPage = 2 })

	w := do(h, http.MethodGet, "/api/users?page=1", "")
	got := decode[PagedResult](t, w)
	if len(got.Data) != 2 || got.Pagination.PageCount != 2 {
		t.Fatalf("unexpected page %+v", got)
	}
}

func TestPaginationRejectsNonPositivePage(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, nil)

	for _, target := range []string{"/api/users?page=0", "/api/users?page=-1"} {
		w := do(h, http.MethodGet, target, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", target, w.Code)
		}
		if body := decode[errorBody](t, w); !strings.Contains(body.Error, "page query must be a strictly positive number") {
			t.Fatalf("unexpected error %q", body.Error)
		}
	}
	if f.count("getAll") != 0 {
		t.Fatalf("adapter must not be queried")
	}
}

func TestMalformedQueryIsBadRequest(t *testing.T) {
	h := newTestHandler(t, newFakeAdapter(), nil)
	w := do(h, http.MethodGet, `/api/users?where=notjson`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAdapterInvalidQueryIsBadRequest(t *testing.T) {
	f := &invalidAdapter{newFakeAdapter()}
	h, err := New(Options[*query.ParsedQuery]{Adapter: f})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if w := do(h, http.MethodGet, "/api/users", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

type invalidAdapter struct{ *fakeAdapter }

func (a *invalidAdapter) ParseQuery(string, *query.ParsedQuery) (*query.ParsedQuery, error) {
	return nil, fmt.Errorf("%w: unknown column", adapter.ErrInvalidQuery)
}

func TestHooks(t *testing.T) {
	var order []string
	h := newTestHandler(t, newFakeAdapter(), func(o *Options[*query.ParsedQuery]) {
		o.OnRequest = func(r *http.Request) error {
			info, ok := RouteFromContext(r.Context())
			if !ok || info.Resource != "users" || info.Route.Type != route.ReadOne {
				t.Fatalf("route not in context: %+v", info)
			}
			order = append(order, "request")
			return nil
		}
		o.OnSuccess = func(r *http.Request, result any) {
			if rec, ok := result.(adapter.Record); !ok || rec["name"] != "Ann" {
				t.Fatalf("unexpected result %v", result)
			}
			order = append(order, "success")
		}
		o.OnError = func(*http.Request, error) { order = append(order, "error") }
	})

	do(h, http.MethodGet, "/api/users/1", "")
	if diff := cmp.Diff([]string{"request", "success"}, order); diff != "" {
		t.Fatalf("hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestOnRequestErrors(t *testing.T) {
	plain := errors.New("boom")
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{plain, http.StatusInternalServerError, "Internal Server Error"},
		{NewHTTPError(http.StatusUnauthorized, "missing token"), http.StatusUnauthorized, "Unauthorized: missing token"},
		{fmt.Errorf("wrapped: %w", NewHTTPError(http.StatusForbidden, "nope")), http.StatusForbidden, "wrapped: Forbidden: nope"},
	}
	for _, c := range cases {
		var got error
		f := newFakeAdapter()
		h := newTestHandler(t, f, func(o *Options[*query.ParsedQuery]) {
			o.OnRequest = func(*http.Request) error { return c.err }
			o.OnError = func(_ *http.Request, err error) { got = err }
		})
		w := do(h, http.MethodGet, "/api/users", "")
		if w.Code != c.status {
			t.Fatalf("%v: status = %d", c.err, w.Code)
		}
		if body := decode[errorBody](t, w); body.Error != c.msg {
			t.Fatalf("%v: error = %q", c.err, body.Error)
		}
		if got != c.err {
			t.Fatalf("OnError got %v", got)
		}
		if len(f.calls) != 0 {
			t.Fatalf("adapter called after OnRequest failure: %v", f.calls)
		}
	}
}

func TestRequestIDInErrorBody(t *testing.T) {
	h := newTestHandler(t, newFakeAdapter(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/users/77", nil)
	req = req.WithContext(WithRequestID(req.Context(), "req-1"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if body := decode[errorBody](t, w); body.RequestID != "req-1" {
		t.Fatalf("request id = %q", body.RequestID)
	}
}

func TestMiddlewares(t *testing.T) {
	var order []string
	h := newTestHandler(t, newFakeAdapter(), func(o *Options[*query.ParsedQuery]) {
		o.Middlewares = []Middleware{
			func(ctx *MiddlewareContext, next func() error) error {
				order = append(order, "first:before")
				err := next()
				order = append(order, "first:after")
				return err
			},
			func(ctx *MiddlewareContext, next func() error) error {
				order = append(order, "second")
				ctx.Result = map[string]any{"wrapped": ctx.Result}
				return next()
			},
		}
	})

	w := do(h, http.MethodGet, "/api/users/1", "")
	if diff := cmp.Diff([]string{"first:before", "second", "first:after"}, order); diff != "" {
		t.Fatalf("middleware order mismatch (-want +got):\n%s", diff)
	}
	got := decode[map[string]map[string]any](t, w)
	if got["wrapped"]["name"] != "Ann" {
		t.Fatalf("result not replaced: %v", got)
	}
}

func TestMiddlewareError(t *testing.T) {
	h := newTestHandler(t, newFakeAdapter(), func(o *Options[*query.ParsedQuery]) {
		o.Middlewares = []Middleware{
			func(*MiddlewareContext, func() error) error {
				return NewHTTPError(http.StatusTeapot, "short")
			},
		}
	})
	if w := do(h, http.MethodGet, "/api/users", ""); w.Code != http.StatusTeapot {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestResponseCache(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, func(o *Options[*query.ParsedQuery]) {
		o.Cache = cache.NewMemory(0)
		o.CacheTTL = time.Minute
	})

	first := do(h, http.MethodGet, "/api/users?limit=2", "")
	second := do(h, http.MethodGet, "/api/users?limit=2", "")
	if f.count("getAll") != 1 {
		t.Fatalf("second read must be served from cache, calls=%v", f.calls)
	}
	if second.Header().Get("X-Cache") != "HIT" || first.Body.String() != second.Body.String() {
		t.Fatalf("cached body differs: %q vs %q", first.Body.String(), second.Body.String())
	}

	do(h, http.MethodGet, "/api/users?limit=3", "")
	if f.count("getAll") != 2 {
		t.Fatalf("different params must miss")
	}

	if w := do(h, http.MethodPost, "/api/users", `{"name":"Eve"}`); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	do(h, http.MethodGet, "/api/users?limit=2", "")
	if f.count("getAll") != 3 {
		t.Fatalf("write must invalidate cached reads")
	}
}

func TestResponseCacheRelatedWrites(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, func(o *Options[*query.ParsedQuery]) {
		o.Cache = cache.NewMemory(0)
		o.CacheTTL = time.Minute
	})

	do(h, http.MethodGet, "/api/users?include=user_roles", "")
	if w := do(h, http.MethodPost, "/api/user_roles", `{"user_id":1}`); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	w := do(h, http.MethodGet, "/api/users?include=user_roles", "")
	if w.Header().Get("X-Cache") == "HIT" || f.count("getAll") != 2 {
		t.Fatalf("write to user_roles must invalidate users reads, calls=%v", f.calls)
	}
}

func TestResponseCacheDependents(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, func(o *Options[*query.ParsedQuery]) {
		o.Cache = cache.NewMemory(0)
		o.CacheTTL = time.Minute
		o.CacheDependents = func(resource string) []string {
			if resource == "user_roles" {
				return []string{"users"}
			}
			return nil
		}
	})

	do(h, http.MethodGet, "/api/users?include=user_roles", "")
	do(h, http.MethodGet, "/api/user_roles", "")
	if f.count("getAll") != 2 {
		t.Fatalf("expected two misses, calls=%v", f.calls)
	}

	// users has no dependents: user_roles reads stay cached
	if w := do(h, http.MethodPost, "/api/users", `{"name":"Eve"}`); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/api/user_roles", ""); w.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("user_roles read must survive a users write")
	}

	if w := do(h, http.MethodPost, "/api/user_roles", `{"user_id":1}`); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/api/users?include=user_roles", ""); w.Header().Get("X-Cache") == "HIT" {
		t.Fatalf("users read must be invalidated by a user_roles write")
	}
	if f.count("getAll") != 3 {
		t.Fatalf("calls=%v", f.calls)
	}
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	f := newFakeAdapter()
	h := newTestHandler(t, f, func(o *Options[*query.ParsedQuery]) {
		o.Cache = cache.NewMemory(0)
		o.CacheTTL = time.Minute
	})
	do(h, http.MethodGet, "/api/users/9", "")
	do(h, http.MethodGet, "/api/users/9", "")
	if f.count("getOne") != 2 {
		t.Fatalf("404 must not be cached")
	}
}
