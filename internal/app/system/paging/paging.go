// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows returned by list endpoints.
const PageSize = 50

// ParseLimit reads the "limit" query parameter. Missing, malformed, or
// non-positive values yield PageSize; larger values are capped at max.
func ParseLimit(r *http.Request, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get(r, "limit")))
	if err != nil || n < 1 {
		n = PageSize
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// ParseFlag reads a boolean query parameter. Anything strconv.ParseBool
// rejects counts as false.
func ParseFlag(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(query.Get(r, key)))
	return b
}
