// Package session provides the middleware that carries the backend session
// cookie on every request and captures it from auth responses.
package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/jaxron/axonet/pkg/client/logger"
	"github.com/jaxron/axonet/pkg/client/middleware"
)

// Middleware attaches the session cookie to outgoing requests and records
// the cookie the backend sets on auth responses. The same instance is
// shared by the read and write clients so both see the current session.
type Middleware struct {
	mu         sync.RWMutex
	cookieName string
	cookie     string
	logger     logger.Logger
}

// New creates a session Middleware for the given cookie name.
func New(cookieName string) *Middleware {
	return &Middleware{
		cookieName: cookieName,
		logger:     &logger.NoOpLogger{},
	}
}

// Process attaches the session credential before passing the request on,
// then captures any refreshed credential from the response.
func (m *Middleware) Process(
	ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc,
) (*http.Response, error) {
	m.mu.RLock()
	cookie := m.cookie
	m.mu.RUnlock()

	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: m.cookieName, Value: cookie})
	}

	resp, err := next(ctx, httpClient, req)
	if err != nil {
		return resp, err
	}

	for _, setCookie := range resp.Cookies() {
		if setCookie.Name != m.cookieName {
			continue
		}

		m.mu.Lock()
		if setCookie.MaxAge < 0 {
			m.cookie = ""
		} else {
			m.cookie = setCookie.Value
		}
		m.mu.Unlock()

		m.logger.Debug("Session cookie updated from response")
	}

	return resp, nil
}

// SetLogger sets the logger for the middleware.
func (m *Middleware) SetLogger(l logger.Logger) {
	m.logger = l
}

// Cookie returns the current session cookie, empty when logged out.
func (m *Middleware) Cookie() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cookie
}

// SetCookie seeds the session cookie, typically from the session store.
func (m *Middleware) SetCookie(cookie string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookie = cookie
}

// Clear drops the session cookie.
func (m *Middleware) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookie = ""
}
