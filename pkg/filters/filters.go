// Package filters encodes container list filters into the single JSON query
// parameter expected by the Docker API behind a Portainer endpoint.
package filters

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Args maps a filter name to one or more values, e.g.
// {"status": "running", "label": ["a=b", "c=d"]}.
type Args map[string]any

// errEncodeFailed indicates the normalized filter map could not be
// serialized to JSON.
var errEncodeFailed = errors.New("failed to encode filters")

// Add appends a value to the values recorded for a filter name.
func (args Args) Add(name, value string) {
	if existing, ok := args[name]; ok {
		args[name] = append(normalize(existing), value)

		return
	}

	args[name] = value
}

// ToParam serializes the filter map into its wire form: a JSON object
// mapping each filter name to a list of strings. Scalar values are wrapped
// into single-element lists, booleans render as the lowercase literals
// "true"/"false", and every other value takes its natural string form.
//
// Returns:
//   - string: Encoded parameter value, empty for an empty map.
//   - error: Non-nil if serialization fails, nil on success.
func (args Args) ToParam() (string, error) {
	if len(args) == 0 {
		return "", nil
	}

	normalized := make(map[string][]string, len(args))
	for name, value := range args {
		normalized[name] = normalize(value)
	}

	buf, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errEncodeFailed, err)
	}

	return string(buf), nil
}

// normalize flattens a filter value into a list of strings.
func normalize(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			values = append(values, stringify(item))
		}

		return values
	default:
		return []string{stringify(value)}
	}
}

// stringify renders a single filter value as a string.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(value)
	}
}
