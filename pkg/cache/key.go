package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached response. Keys are derived deterministically from
// the request method, URL, and query parameters so that identical requests
// share an entry regardless of query parameter ordering.
type Key struct {
	// Method is the HTTP method (GET or HEAD for cacheable requests).
	Method string

	// URL is the request URL without its query string.
	URL string

	// Query holds the request query parameters.
	Query url.Values
}

// NewKey builds a Key from a method and parsed URL.
func NewKey(method string, u *url.URL) Key {
	base := *u
	base.RawQuery = ""
	base.Fragment = ""

	return Key{
		Method: strings.ToUpper(method),
		URL:    base.String(),
		Query:  u.Query(),
	}
}

// String renders the key as a deterministic cache identifier.
// Format: rest:METHOD:url:param1=v1:param2=v2 with parameters sorted by name.
func (k Key) String() string {
	parts := []string{"rest", k.Method, k.URL}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			for _, v := range values {
				parts = append(parts, fmt.Sprintf("%s=%s", name, v))
			}
		}
	}

	return strings.Join(parts, ":")
}
