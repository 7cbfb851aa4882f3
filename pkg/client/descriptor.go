package client

import (
	"fmt"
	"net/url"
	"strconv"
)

// Descriptor describes one HTTP request against the Portainer API.
type Descriptor struct {
	// Method is the HTTP method; GET when empty.
	Method string
	// Path is the request path, relative to the Docker endpoint proxy, or
	// to the API root when AbsPath is set.
	Path string
	// AbsPath appends Path directly to /api instead of scoping it through
	// /api/endpoints/{id}/docker.
	AbsPath bool
	// Query holds the query parameters. Entries with nil values are dropped
	// before encoding.
	Query map[string]any
	// Body is JSON-encoded into the request body when non-nil.
	Body any
	// NoAuth skips the bearer token; only the credential exchange uses it.
	NoAuth bool
}

// encodeQuery renders the descriptor's query parameters, dropping nil-valued
// entries and stringifying the rest.
func (d Descriptor) encodeQuery() string {
	if len(d.Query) == 0 {
		return ""
	}

	values := url.Values{}

	for key, value := range d.Query {
		if value == nil {
			continue
		}

		values.Set(key, queryValue(value))
	}

	return values.Encode()
}

// queryValue renders a single query parameter value as a string, with
// booleans as lowercase literals.
func queryValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(value)
	}
}
