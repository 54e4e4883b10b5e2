package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"CrudAPI/internal/adapter"
	"CrudAPI/internal/adapter/prisma"
	"CrudAPI/internal/logger"
	"CrudAPI/internal/query"
)

// HTTPError carries the status code a failure must be answered with.
// Hooks and middlewares return it to pick the response status.
type HTTPError struct {
	Code    int
	Message string
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return http.StatusText(e.Code) + ": " + e.Message
}

// errBadBody marks a request body that is not a JSON object.
var errBadBody = errors.New("request body must be a JSON object")

// statusFor maps err to the response status.
func statusFor(err error) int {
	var httpErr *HTTPError
	var parseErr *query.ParseError
	var validationErr *prisma.ValidationError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.As(err, &parseErr),
		errors.As(err, &validationErr),
		errors.Is(err, adapter.ErrInvalidQuery),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// fail logs err, runs the error hook and writes the JSON error body.
// Server errors are answered with the bare status text.
func (h *Handler[Q]) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	fields := map[string]any{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     code,
		"request_id": RequestID(r.Context()),
		"error":      err.Error(),
	}
	if info, ok := RouteFromContext(r.Context()); ok {
		fields["resource"] = info.Resource
		fields["route"] = string(info.Route.Type)
	}
	if code >= http.StatusInternalServerError {
		logger.Error("crud_failed", fields)
	} else {
		logger.Warn("crud_rejected", fields)
	}

	if h.opts.OnError != nil {
		h.opts.OnError(r, err)
	}

	msg := err.Error()
	if code >= http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	data, _ := json.Marshal(errorBody{Error: msg, RequestID: RequestID(r.Context())})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
