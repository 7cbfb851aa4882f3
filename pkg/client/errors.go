package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Static errors for request dispatch and credential exchange.
var (
	// ErrRequestTimeout indicates the round trip exceeded the client timeout.
	ErrRequestTimeout = errors.New("timeout occurred while communicating with the Portainer server")
	// ErrTransport indicates the round trip failed before a response was received.
	ErrTransport = errors.New("error occurred while communicating with the Portainer server")
	// ErrAuthenticationFailed indicates the server rejected the configured credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrMissingToken indicates a credential exchange succeeded without returning a token value.
	ErrMissingToken = errors.New("credential exchange response contained no token")
	// ErrInvalidResponse indicates a response declared a JSON content type but carried an undecodable body.
	ErrInvalidResponse = errors.New("invalid JSON in response body")
	// ErrNoJSONPayload indicates a decode was attempted on an outcome without a JSON payload.
	ErrNoJSONPayload = errors.New("response carried no JSON payload")
	// ErrNotFound matches rejections whose status reports the resource missing.
	ErrNotFound = errors.New("resource not found")
)

// ServerRejection describes a completed request that the server answered
// with a 4xx/5xx status. It is carried inside an Outcome rather than
// returned from Do, so callers decide per call whether a rejection is fatal.
type ServerRejection struct {
	// Status is the HTTP status code of the response.
	Status int
	// Message is the raw response body, kept as opaque text.
	Message string
}

// Error implements the error interface.
func (e *ServerRejection) Error() string {
	return fmt.Sprintf("server rejected request with status %d: %s", e.Status, e.Message)
}

// Is matches ErrNotFound for 404 rejections, letting callers detect removed
// resources with errors.Is.
func (e *ServerRejection) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}
