// Package mutation implements the write-intent coordinators. Each operation
// performs one backend call and then applies the cache effects that keep
// every independently fetched collection consistent with the write.
package mutation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/internal/notify"
	"github.com/chirpnet/chirp/internal/session"
	"go.uber.org/zap"
)

// ErrPending rejects a duplicate intent for a target that already has a
// mutation in flight.
var ErrPending = errors.New("mutation already in flight for this target")

// Operation names used for the in-flight guard and logging.
const (
	opFollow        = "follow"
	opLike          = "like"
	opBookmark      = "bookmark"
	opComment       = "comment"
	opDeletePost    = "delete_post"
	opUpdateProfile = "update_profile"
	opLogin         = "login"
	opSignup        = "signup"
	opGoogle        = "google_login"
	opLogout        = "logout"
)

// SessionCookies is the slice of the session middleware the coordinator
// needs: reading the captured cookie after auth calls and dropping it on
// logout.
type SessionCookies interface {
	Cookie() string
	SetCookie(cookie string)
	Clear()
}

type inflightKey struct {
	op     string
	target string
}

// Coordinator owns every mutation operation. All operations share one
// per-(operation,target) in-flight guard so the view layer can disable
// duplicate submissions and a duplicate intent is rejected rather than
// racing the first.
type Coordinator struct {
	api      *api.Client
	cache    *cache.Cache
	store    session.Store
	cookies  SessionCookies
	notifier notify.Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
}

// New creates a Coordinator with the provided dependencies.
func New(
	apiClient *api.Client, entityCache *cache.Cache, store session.Store,
	cookies SessionCookies, notifier notify.Notifier, logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		api:      apiClient,
		cache:    entityCache,
		store:    store,
		cookies:  cookies,
		notifier: notifier,
		logger:   logger.Named("mutation"),
		inflight: make(map[inflightKey]struct{}),
	}
}

// Pending reports whether a mutation is in flight for the operation and
// target, letting the view layer disable duplicate submissions.
func (co *Coordinator) Pending(op, target string) bool {
	co.mu.Lock()
	defer co.mu.Unlock()

	_, ok := co.inflight[inflightKey{op: op, target: target}]
	return ok
}

// begin acquires the in-flight guard for an (operation,target) pair. The
// returned release func must be called once the mutation settles.
func (co *Coordinator) begin(op, target string) (func(), error) {
	co.mu.Lock()
	defer co.mu.Unlock()

	key := inflightKey{op: op, target: target}
	if _, ok := co.inflight[key]; ok {
		return nil, fmt.Errorf("%w: %s %s", ErrPending, op, target)
	}

	co.inflight[key] = struct{}{}

	return func() {
		co.mu.Lock()
		defer co.mu.Unlock()
		delete(co.inflight, key)
	}, nil
}

// fail surfaces exactly one user-facing error notification for a failed
// attempt and passes the error through.
func (co *Coordinator) fail(op string, err error) error {
	co.logger.Warn("Mutation failed",
		zap.String("operation", op),
		zap.Error(err))
	co.notifier.Error(userMessage(err))
	return err
}

// succeed surfaces exactly one success notification, preferring the
// backend's message when it sent one.
func (co *Coordinator) succeed(message, fallback string) {
	if message == "" {
		message = fallback
	}
	co.notifier.Success(message)
}

// userMessage normalizes an error to a single user-facing message.
func userMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	switch {
	case errors.Is(err, api.ErrNetwork):
		return "Could not reach the server. Check your connection and try again."
	case errors.Is(err, api.ErrParse):
		return "The server sent an unexpected response."
	case errors.Is(err, ErrPending):
		return "That action is already in progress."
	default:
		return err.Error()
	}
}

// currentUser returns the cached session actor, if any.
func (co *Coordinator) currentUser() (*api.User, bool) {
	user, _, ok := cache.ValueOf[*api.User](co.cache, cache.CurrentUserKey())
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
