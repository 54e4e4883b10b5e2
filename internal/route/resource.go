package route

import (
	"strconv"
	"strings"
)

const maxSafeInteger = 1<<53 - 1

// FormatResourceID turns a numeric id into an int64 and leaves anything else as is.
func FormatResourceID(id string) any {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n > maxSafeInteger || n < -maxSafeInteger {
		return id
	}
	return n
}

// ResourceFromURL returns the resource whose "/name" segment appears in the
// path of rawURL. Longer names win so that "user_roles" beats "user".
func ResourceFromURL(rawURL string, resources []string) (string, bool) {
	path, _, _ := strings.Cut(rawURL, "?")
	segments := strings.Split(path, "/")

	best := ""
	for _, name := range resources {
		if name == "" || len(name) <= len(best) {
			continue
		}
		for _, seg := range segments {
			if seg == name {
				best = name
				break
			}
		}
	}
	return best, best != ""
}

// ExposeStrategy decides which routes are exposed when no explicit list is given.
type ExposeStrategy string

const (
	ExposeAll  ExposeStrategy = "all"
	ExposeNone ExposeStrategy = "none"
)

// AllRoutes lists every CRUD route in exposure order.
var AllRoutes = []RouteType{ReadAll, ReadOne, Update, Delete, Create}

// AccessibleRoutes computes the exposed routes. A non-nil only list replaces
// the strategy default; exclude is removed afterwards.
func AccessibleRoutes(only, exclude []RouteType, strategy ExposeStrategy) []RouteType {
	var base []RouteType
	switch {
	case only != nil:
		base = only
	case strategy == ExposeNone:
		base = nil
	default:
		base = AllRoutes
	}

	res := make([]RouteType, 0, len(base))
	for _, rt := range base {
		if !containsRoute(exclude, rt) {
			res = append(res, rt)
		}
	}
	return res
}

// IsAccessible reports whether rt is part of routes.
func IsAccessible(routes []RouteType, rt RouteType) bool {
	return containsRoute(routes, rt)
}

func containsRoute(routes []RouteType, rt RouteType) bool {
	for _, r := range routes {
		if r == rt {
			return true
		}
	}
	return false
}
