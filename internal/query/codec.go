package query

import (
	"net/url"
	"regexp"

	"CrudAPI/internal/logger"
)

// arraySuffix matches the "[]" and "[0]" key suffixes used for repeated values.
var arraySuffix = regexp.MustCompile(`\[\d*\]$`)

// param is one decoded query parameter. array is set when the key was
// written with a bracket suffix or repeated.
type param struct {
	values []string
	array  bool
}

// single returns the value when the parameter is a single non-empty string.
func (p param) single() (string, bool) {
	if p.array || len(p.values) != 1 {
		return "", false
	}
	return p.values[0], true
}

// present reports whether the parameter carries any non-empty value.
func (p param) present() bool {
	for _, v := range p.values {
		if v != "" {
			return true
		}
	}
	return false
}

// decodeFlat decodes raw into the flat url.Values and the bracket-folded params.
// Malformed escapes are skipped rather than failing the whole request.
func decodeFlat(raw string) (url.Values, map[string]param) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		logger.Debug("query_string_partially_decoded", map[string]any{
			"error": err.Error(),
		})
	}

	params := make(map[string]param, len(values))
	for key, vals := range values {
		base := key
		bracketed := false
		if loc := arraySuffix.FindStringIndex(key); loc != nil && loc[0] > 0 {
			base = key[:loc[0]]
			bracketed = true
		}
		p := params[base]
		p.values = append(p.values, vals...)
		p.array = p.array || bracketed || len(p.values) > 1
		params[base] = p
	}
	return values, params
}
