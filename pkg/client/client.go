// Package client implements the authenticated request core for a
// Portainer-managed Docker endpoint. It establishes and refreshes the
// short-lived session token, dispatches HTTP requests against the
// versioned, endpoint-scoped API path, and classifies server responses into
// a uniform Outcome.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-connections/tlsconfig"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/portainerctl/pkg/metrics"
	"github.com/nicholas-fedor/portainerctl/pkg/types"
)

const (
	// defaultTimeout bounds every request round trip.
	defaultTimeout = 60 * time.Second
	// defaultEndpointID addresses the first registered Docker environment.
	defaultEndpointID = 1
	// apiRoot prefixes every request path.
	apiRoot = "/api"
	// authPath is the credential exchange endpoint, relative to the API root.
	authPath = "/auth"
)

// Options configures a Client.
type Options struct {
	// Host and Port identify the Portainer server.
	Host string
	Port int
	// Scheme selects http or https; https when empty.
	Scheme string
	// EndpointID addresses the Docker environment behind the server; 1 when unset.
	EndpointID int
	// Username and Password are exchanged for a bearer token on demand.
	Username string
	Password string
	// Timeout overrides the default 60-second request bound.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// HTTPClient replaces the built-in transport, mainly for tests. The
	// caller retains ownership of an injected client.
	HTTPClient *http.Client
}

// Client issues authenticated requests against one Portainer-managed Docker
// endpoint. The underlying HTTP client is long-lived, shared across all
// calls, and released by Close when owned by the Client.
type Client struct {
	host        string
	port        int
	scheme      string
	endpointID  int
	credentials types.Credentials
	httpClient  *http.Client
	ownsClient  bool
	tokens      *tokenManager
	metrics     *metrics.Metrics
	closeOnce   sync.Once
}

// New constructs a Client from the given options, filling in defaults for
// scheme, endpoint id, and timeout, and building the shared HTTP transport
// unless one is injected.
func New(opts Options) *Client {
	scheme := opts.Scheme
	if scheme == "" {
		scheme = "https"
	}

	endpointID := opts.EndpointID
	if endpointID == 0 {
		endpointID = defaultEndpointID
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient := opts.HTTPClient
	ownsClient := false

	if httpClient == nil {
		tlsConfig := tlsconfig.ClientDefault()
		tlsConfig.InsecureSkipVerify = opts.InsecureSkipVerify

		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}
		ownsClient = true
	}

	portainerClient := &Client{
		host:       opts.Host,
		port:       opts.Port,
		scheme:     scheme,
		endpointID: endpointID,
		credentials: types.Credentials{
			Username: opts.Username,
			Password: opts.Password,
		},
		httpClient: httpClient,
		ownsClient: ownsClient,
		metrics:    metrics.Default(),
	}
	portainerClient.tokens = newTokenManager(portainerClient.exchangeToken)

	return portainerClient
}

// EndpointID returns the id of the Docker environment this client addresses.
func (c *Client) EndpointID() int {
	return c.endpointID
}

// Do dispatches one request described by desc and classifies the response.
//
// Exactly one attempt is made per call; there is no retry logic. Transport
// failures are returned as errors wrapping ErrRequestTimeout or
// ErrTransport, while server rejections travel inside the Outcome.
func (c *Client) Do(ctx context.Context, desc Descriptor) (Outcome, error) {
	method := desc.Method
	if method == "" {
		method = http.MethodGet
	}

	requestURL := c.buildURL(desc)

	var body io.Reader

	if desc.Body != nil {
		buf, err := json.Marshal(desc.Body)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to encode request body: %w", err)
		}

		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if desc.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Refresh-then-call: every authenticated descriptor passes through the
	// token manager before it reaches the wire.
	if !desc.NoAuth {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return Outcome{}, err
		}

		req.Header.Set("Authorization", "Bearer "+token)
	}

	logrus.WithFields(logrus.Fields{
		"method": method,
		"url":    requestURL,
	}).Debug("Dispatching request")

	c.metrics.RegisterRequest()

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RegisterTransportFailure()

		if isTimeout(err) {
			return Outcome{}, fmt.Errorf("%w: %w", ErrRequestTimeout, err)
		}

		return Outcome{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer res.Body.Close()

	return c.classify(res)
}

// Close releases the transport owned by the client. It is safe to call more
// than once; an injected HTTP client is left untouched.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.ownsClient {
			c.httpClient.CloseIdleConnections()
		}
	})
}

// buildURL assembles the full request URL for a descriptor.
func (c *Client) buildURL(desc Descriptor) string {
	requestURL := url.URL{
		Scheme:   c.scheme,
		Host:     net.JoinHostPort(c.host, strconv.Itoa(c.port)),
		Path:     c.apiPath(desc),
		RawQuery: desc.encodeQuery(),
	}

	return requestURL.String()
}

// apiPath scopes relative descriptor paths through the configured Docker
// endpoint; absolute paths attach directly to the API root.
func (c *Client) apiPath(desc Descriptor) string {
	if desc.AbsPath {
		return apiRoot + desc.Path
	}

	return fmt.Sprintf("%s/endpoints/%d/docker%s", apiRoot, c.endpointID, desc.Path)
}

// classify turns a completed HTTP response into an Outcome.
func (c *Client) classify(res *http.Response) (Outcome, error) {
	buf, err := io.ReadAll(res.Body)
	if err != nil {
		c.metrics.RegisterTransportFailure()

		return Outcome{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	status := res.StatusCode
	contentType := res.Header.Get("Content-Type")

	switch {
	case status >= http.StatusBadRequest && status < 600:
		// Error bodies stay opaque text, even when the server sends JSON.
		c.metrics.RegisterRejection()

		logrus.WithFields(logrus.Fields{
			"status": status,
			"body":   string(buf),
		}).Debug("Server rejected request")

		return Outcome{Kind: KindRejected, Status: status, Message: string(buf)}, nil
	case status == http.StatusNoContent:
		return Outcome{Kind: KindEmpty, Status: status}, nil
	case strings.Contains(contentType, "application/json"):
		if !json.Valid(buf) {
			return Outcome{}, fmt.Errorf("%w: content type %s", ErrInvalidResponse, contentType)
		}

		return Outcome{Kind: KindJSON, Status: status, JSON: json.RawMessage(buf)}, nil
	default:
		return Outcome{Kind: KindText, Status: status, Text: string(buf)}, nil
	}
}

// exchangeToken performs the unauthenticated credential exchange and
// returns the bearer token issued by the server.
func (c *Client) exchangeToken(ctx context.Context) (string, error) {
	outcome, err := c.Do(ctx, Descriptor{
		Method:  http.MethodPost,
		Path:    authPath,
		AbsPath: true,
		NoAuth:  true,
		Body:    c.credentials,
	})
	if err != nil {
		return "", err
	}

	if outcome.Rejected() {
		return "", fmt.Errorf("%w: %s", ErrAuthenticationFailed, outcome.Message)
	}

	var payload types.TokenResponse
	if err := outcome.Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	if payload.JWT == "" {
		return "", ErrMissingToken
	}

	c.metrics.RegisterTokenRefresh()

	return payload.JWT, nil
}

// isTimeout reports whether a transport failure was caused by the request
// deadline rather than a connection-level problem.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
