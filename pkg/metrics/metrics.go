// Package metrics exposes Prometheus counters describing the activity of
// the Portainer request core: dispatched requests, server rejections,
// transport failures, and credential exchanges.
package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metrics handles counting request core activity.
type Metrics struct {
	requests          prometheus.Counter // Counter for dispatched requests.
	rejections        prometheus.Counter // Counter for 4xx/5xx responses.
	transportFailures prometheus.Counter // Counter for failed round trips.
	tokenRefreshes    prometheus.Counter // Counter for credential exchanges.
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler backed by registered counters, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	handler := &Metrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portainerctl_requests_total",
			Help: "Number of requests dispatched against the Portainer API",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portainerctl_request_rejections_total",
			Help: "Number of completed requests the server answered with a 4xx/5xx status",
		}),
		transportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portainerctl_transport_failures_total",
			Help: "Number of requests that failed before completing a round trip",
		}),
		tokenRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portainerctl_token_refreshes_total",
			Help: "Number of credential exchanges performed to obtain a bearer token",
		}),
	}

	var err error

	if handler.requests, err = registerCounter(registry, handler.requests); err != nil {
		return nil, err
	}

	if handler.rejections, err = registerCounter(registry, handler.rejections); err != nil {
		return nil, err
	}

	if handler.transportFailures, err = registerCounter(registry, handler.transportFailures); err != nil {
		return nil, err
	}

	if handler.tokenRefreshes, err = registerCounter(registry, handler.tokenRefreshes); err != nil {
		return nil, err
	}

	return handler, nil
}

// registerCounter registers a counter, reusing the existing collector when
// one with the same descriptor is already registered.
func registerCounter(
	registry prometheus.Registerer,
	counter prometheus.Counter,
) (prometheus.Counter, error) {
	if err := registry.Register(counter); err != nil {
		alreadyRegistered := &prometheus.AlreadyRegisteredError{}
		if errors.As(err, alreadyRegistered) {
			if existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}

		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	return counter, nil
}

// Default returns the process-wide metrics handler, creating it against the
// default Prometheus registerer on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		handler, err := NewWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to register request core metrics")
		}

		defaultMetrics = handler
	})

	return defaultMetrics
}

// RegisterRequest counts one dispatched request.
func (m *Metrics) RegisterRequest() {
	m.requests.Inc()
}

// RegisterRejection counts one completed request that the server rejected.
func (m *Metrics) RegisterRejection() {
	m.rejections.Inc()
}

// RegisterTransportFailure counts one request that never completed a round trip.
func (m *Metrics) RegisterTransportFailure() {
	m.transportFailures.Inc()
}

// RegisterTokenRefresh counts one credential exchange.
func (m *Metrics) RegisterTokenRefresh() {
	m.tokenRefreshes.Inc()
}
