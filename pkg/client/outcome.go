package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// OutcomeKind tags the shape of a classified response.
type OutcomeKind int

const (
	// KindEmpty marks a 204 response carrying no payload.
	KindEmpty OutcomeKind = iota
	// KindJSON marks a success response carrying a JSON payload.
	KindJSON
	// KindText marks a success response carrying a non-JSON text payload.
	KindText
	// KindRejected marks a 4xx/5xx response; the raw body becomes the message.
	KindRejected
)

// Outcome is the uniform result of a completed request round trip.
//
// Server-reported failures are represented here as values rather than
// returned as errors from Do, so batch callers can apply per-item handling
// policy. Transport failures never produce an Outcome.
type Outcome struct {
	// Kind selects which payload field is meaningful.
	Kind OutcomeKind
	// Status is the HTTP status code of the response.
	Status int
	// JSON holds the undecoded payload when Kind is KindJSON.
	JSON json.RawMessage
	// Text holds the payload when Kind is KindText.
	Text string
	// Message holds the raw response body when Kind is KindRejected.
	Message string
}

// Rejected reports whether the server answered with an error status.
func (o Outcome) Rejected() bool {
	return o.Kind == KindRejected
}

// NotFound reports whether the server answered 404 for the requested resource.
func (o Outcome) NotFound() bool {
	return o.Kind == KindRejected && o.Status == http.StatusNotFound
}

// Err converts a rejection into a *ServerRejection error value and returns
// nil for every success kind. 404 rejections match ErrNotFound via errors.Is.
func (o Outcome) Err() error {
	if o.Kind != KindRejected {
		return nil
	}

	return &ServerRejection{Status: o.Status, Message: o.Message}
}

// Decode unmarshals the JSON payload into v.
//
// Returns:
//   - error: ErrNoJSONPayload if the outcome carries no JSON payload, a
//     wrapped decode error if unmarshaling fails, nil on success.
func (o Outcome) Decode(v any) error {
	if o.Kind != KindJSON {
		return ErrNoJSONPayload
	}

	if err := json.Unmarshal(o.JSON, v); err != nil {
		return fmt.Errorf("failed to decode response payload: %w", err)
	}

	return nil
}
