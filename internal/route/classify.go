// Package route classifies incoming requests into CRUD route intents.
package route

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// RouteType is the CRUD intent of a request.
type RouteType string

const (
	None    RouteType = ""
	ReadAll RouteType = "READ_ALL"
	ReadOne RouteType = "READ_ONE"
	Create  RouteType = "CREATE"
	Update  RouteType = "UPDATE"
	Delete  RouteType = "DELETE"
)

// ErrInvalidResourceName is returned when the resource name is not part of the path.
var ErrInvalidResourceName = errors.New("invalid resource name")

// Route is the outcome of a classification. ResourceID is set for
// ReadOne, Update and Delete.
type Route struct {
	Type       RouteType `json:"type"`
	ResourceID string    `json:"resourceId,omitempty"`
}

// HasID reports whether the route targets a single entity.
func (r Route) HasID() bool {
	return r.Type == ReadOne || r.Type == Update || r.Type == Delete
}

// Classify determines the route intent of method + rawURL for resourceName.
// None is a valid answer meaning "no matching route".
func Classify(method, rawURL, resourceName string) (Route, error) {
	path, _, _ := strings.Cut(rawURL, "?")

	if resourceName == "" || !containsSegment(path, resourceName) {
		return Route{}, fmt.Errorf("%w '%s' for route '%s'", ErrInvalidResourceName, resourceName, path)
	}

	entity, collection := matchers(resourceName)

	switch strings.ToUpper(method) {
	case http.MethodGet:
		if id, ok := matchID(entity, path); ok {
			return Route{Type: ReadOne, ResourceID: id}, nil
		}
		return Route{Type: ReadAll}, nil
	case http.MethodPost:
		if collection.MatchString(path) {
			return Route{Type: Create}, nil
		}
	case http.MethodPut, http.MethodPatch:
		if id, ok := matchID(entity, path); ok {
			return Route{Type: Update, ResourceID: id}, nil
		}
	case http.MethodDelete:
		if id, ok := matchID(entity, path); ok {
			return Route{Type: Delete, ResourceID: id}, nil
		}
	}
	return Route{Type: None}, nil
}

// containsSegment reports whether "/name" occurs in path ending at a
// segment boundary, so "users" is not found in "/users-archive".
func containsSegment(path, name string) bool {
	needle := "/" + name
	for rest := path; ; {
		i := strings.Index(rest, needle)
		if i < 0 {
			return false
		}
		rest = rest[i+len(needle):]
		if rest == "" || rest[0] == '/' {
			return true
		}
	}
}

// matchers builds the entity matcher (/name or /name/:id) and the
// collection matcher (exactly /name), both anchored at the end of the path.
func matchers(resourceName string) (entity, collection *regexp.Regexp) {
	quoted := regexp.QuoteMeta(resourceName)
	entity = regexp.MustCompile(`/` + quoted + `(?:/([^/]+))?/?$`)
	collection = regexp.MustCompile(`/` + quoted + `/?$`)
	return entity, collection
}

func matchID(entity *regexp.Regexp, path string) (string, bool) {
	m := entity.FindStringSubmatch(path)
	if m == nil || m[1] == "" {
		return "", false
	}
	id, err := url.PathUnescape(m[1])
	if err != nil {
		return m[1], true
	}
	return id, true
}
