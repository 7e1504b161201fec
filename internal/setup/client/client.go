// Package client constructs the HTTP clients used to talk to the backend.
package client

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/chirpnet/chirp/internal/setup/client/interceptor/session"
	"github.com/chirpnet/chirp/internal/setup/client/logger"
	"github.com/chirpnet/chirp/internal/setup/config"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	"go.uber.org/zap"
)

// Clients bundles the two HTTP clients the API layer works with. Reads and
// writes are split so read-side protections never swallow a write: the read
// client carries a circuit breaker and request coalescing, while the write
// client sends every request exactly as issued. Both share one session
// middleware so the cookie captured on login is attached everywhere.
type Clients struct {
	Reads   *client.Client
	Writes  *client.Client
	Session *session.Middleware
}

// GetClients constructs the read and write HTTP clients from configuration.
func GetClients(cfg *config.Config, zapLogger *zap.Logger) *Clients {
	sessionMiddleware := session.New(cfg.API.CookieName)
	requestTimeout := time.Duration(cfg.API.RequestTimeout) * time.Millisecond

	reads := client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(logger.New(zapLogger)),
		client.WithTimeout(requestTimeout),
		client.WithMiddleware(circuitbreaker.New(
			cfg.CircuitBreaker.MaxRequests,
			time.Duration(cfg.CircuitBreaker.Interval)*time.Millisecond,
			time.Duration(cfg.CircuitBreaker.Timeout)*time.Millisecond,
		)),
		client.WithMiddleware(singleflight.New()),
		client.WithMiddleware(sessionMiddleware),
	)

	writes := client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(logger.New(zapLogger)),
		client.WithTimeout(requestTimeout),
		client.WithMiddleware(sessionMiddleware),
	)

	return &Clients{
		Reads:   reads,
		Writes:  writes,
		Session: sessionMiddleware,
	}
}
