// Package httperr holds the error values shared by handlers and middleware
// that the central echo error handler knows how to render.
package httperr

import (
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ValidationError reports malformed or missing input.  Fields maps the JSON
// (or path) name of each offending field to a short reason.  It is rendered
// as 422 {"error":"Validation Failed","details":Fields}.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// PathID parses the named path parameter as a positive integer id.  Any
// other value yields a *ValidationError naming the parameter.
func PathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, Invalid(name, "invalid integer number")
	}
	return id, nil
}
