package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func process(t *testing.T, m *Middleware, next func(req *http.Request) *http.Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "http://backend.test/api/v1/auth/me", nil)

	_, err := m.Process(context.Background(), http.DefaultClient, req,
		func(_ context.Context, _ *http.Client, req *http.Request) (*http.Response, error) {
			return next(req), nil
		})
	require.NoError(t, err)
}

func responseWithCookie(cookie *http.Cookie) *http.Response {
	rec := httptest.NewRecorder()
	if cookie != nil {
		http.SetCookie(rec, cookie)
	}
	return rec.Result()
}

func TestAttachesCookieToRequests(t *testing.T) {
	t.Parallel()

	m := New("jwt")
	m.SetCookie("token123")

	process(t, m, func(req *http.Request) *http.Response {
		cookie, err := req.Cookie("jwt")
		require.NoError(t, err)
		assert.Equal(t, "token123", cookie.Value)
		return responseWithCookie(nil)
	})
}

func TestSkipsCookieWhenLoggedOut(t *testing.T) {
	t.Parallel()

	m := New("jwt")

	process(t, m, func(req *http.Request) *http.Response {
		_, err := req.Cookie("jwt")
		assert.ErrorIs(t, err, http.ErrNoCookie)
		return responseWithCookie(nil)
	})
}

func TestCapturesCookieFromResponse(t *testing.T) {
	t.Parallel()

	m := New("jwt")

	process(t, m, func(*http.Request) *http.Response {
		return responseWithCookie(&http.Cookie{Name: "jwt", Value: "fresh-token"})
	})

	assert.Equal(t, "fresh-token", m.Cookie())
}

func TestIgnoresUnrelatedCookies(t *testing.T) {
	t.Parallel()

	m := New("jwt")
	m.SetCookie("token123")

	process(t, m, func(*http.Request) *http.Response {
		return responseWithCookie(&http.Cookie{Name: "tracking", Value: "nope"})
	})

	assert.Equal(t, "token123", m.Cookie())
}

func TestExpiredCookieClearsSession(t *testing.T) {
	t.Parallel()

	m := New("jwt")
	m.SetCookie("token123")

	process(t, m, func(*http.Request) *http.Response {
		return responseWithCookie(&http.Cookie{Name: "jwt", Value: "", MaxAge: -1})
	})

	assert.Empty(t, m.Cookie())
}

func TestClearDropsCookie(t *testing.T) {
	t.Parallel()

	m := New("jwt")
	m.SetCookie("token123")
	m.Clear()

	assert.Empty(t, m.Cookie())
}
