package client

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// tokenLifetime sits just under the server's eight-hour token expiry,
// leaving a safety margin before a held token goes stale server-side.
const tokenLifetime = 7*time.Hour + 59*time.Minute

// tokenManager holds the current bearer token and its expiry, refreshing it
// synchronously on demand before any authenticated call.
//
// The token and expiry are only ever updated together under the mutex, and
// the refresh itself runs inside the same critical section, so concurrent
// callers racing past an expired token perform a single credential exchange.
type tokenManager struct {
	mu       sync.Mutex
	token    string
	expiry   time.Time
	now      func() time.Time
	exchange func(ctx context.Context) (string, error)
}

// newTokenManager builds a manager around the given credential exchange.
func newTokenManager(exchange func(ctx context.Context) (string, error)) *tokenManager {
	return &tokenManager{
		now:      time.Now,
		exchange: exchange,
	}
}

// Token returns a bearer token valid at the time of the call, performing a
// credential exchange first when no token is held or the held one expired.
func (m *tokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Before(m.expiry) {
		return m.token, nil
	}

	logrus.Debug("Bearer token missing or expired, exchanging credentials")

	token, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}

	m.token = token
	m.expiry = m.now().Add(tokenLifetime)

	return m.token, nil
}
