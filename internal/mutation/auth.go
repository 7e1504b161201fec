package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/internal/session"
	"go.uber.org/zap"
)

// CheckAuth resolves the session actor. The persisted snapshot is used
// first so a restarted client resumes without an auth round trip; otherwise
// the backend is asked. An unauthenticated answer is the logged-out state,
// not an error, and returns a nil user.
func (co *Coordinator) CheckAuth(ctx context.Context) (*api.User, error) {
	if user, err := co.store.LoadUser(ctx); err == nil && user != nil {
		co.cache.Set(cache.CurrentUserKey(), user)
		return user, nil
	} else if err != nil && !errors.Is(err, session.ErrNotFound) {
		co.logger.Warn("Failed to load persisted user", zap.Error(err))
	}

	user, err := co.api.Auth().Me(ctx)
	if err != nil {
		if api.IsUnauthenticated(err) {
			return nil, nil
		}
		return nil, err
	}

	co.cache.Set(cache.CurrentUserKey(), user)

	if err := co.store.SaveUser(ctx, user); err != nil {
		co.logger.Warn("Failed to persist user", zap.Error(err))
	}

	return user, nil
}

// Login opens a session with credentials, populates CurrentUser and marks
// the suggestion list stale.
func (co *Coordinator) Login(ctx context.Context, usernameOrEmail, password string) (*api.User, error) {
	if usernameOrEmail == "" || password == "" {
		return nil, co.fail(opLogin, fmt.Errorf("%w: username/email and password are required", api.ErrValidation))
	}

	release, err := co.begin(opLogin, usernameOrEmail)
	if err != nil {
		return nil, co.fail(opLogin, err)
	}
	defer release()

	user, msg, err := co.api.Auth().Login(ctx, api.LoginParams{
		UsernameOrEmail: usernameOrEmail,
		Password:        password,
	})
	if err != nil {
		return nil, co.fail(opLogin, err)
	}

	co.openSession(ctx, user)
	co.succeed(msg, "Logged in")
	return user, nil
}

// Signup registers an account and opens its session.
func (co *Coordinator) Signup(ctx context.Context, params api.SignupParams) (*api.User, error) {
	if params.Username == "" || params.Email == "" || params.Password == "" {
		return nil, co.fail(opSignup, fmt.Errorf("%w: username, email and password are required", api.ErrValidation))
	}

	release, err := co.begin(opSignup, params.Username)
	if err != nil {
		return nil, co.fail(opSignup, err)
	}
	defer release()

	user, msg, err := co.api.Auth().Signup(ctx, params)
	if err != nil {
		return nil, co.fail(opSignup, err)
	}

	co.openSession(ctx, user)
	co.succeed(msg, "Account created")
	return user, nil
}

// GoogleLogin opens a session through the federated identity provider.
func (co *Coordinator) GoogleLogin(ctx context.Context, params api.GoogleParams) (*api.User, error) {
	if params.Email == "" || params.FirebaseID == "" {
		return nil, co.fail(opGoogle, fmt.Errorf("%w: email and federated id are required", api.ErrValidation))
	}

	release, err := co.begin(opGoogle, params.Email)
	if err != nil {
		return nil, co.fail(opGoogle, err)
	}
	defer release()

	user, msg, err := co.api.Auth().Google(ctx, params)
	if err != nil {
		return nil, co.fail(opGoogle, err)
	}

	co.openSession(ctx, user)
	co.succeed(msg, "Logged in")
	return user, nil
}

// Logout closes the session and drops all local state derived from it.
func (co *Coordinator) Logout(ctx context.Context) error {
	release, err := co.begin(opLogout, "self")
	if err != nil {
		return co.fail(opLogout, err)
	}
	defer release()

	msg, err := co.api.Auth().Logout(ctx)
	if err != nil {
		return co.fail(opLogout, err)
	}

	co.cookies.Clear()
	co.cache.Clear()

	if err := co.store.Clear(ctx); err != nil {
		co.logger.Warn("Failed to clear persisted session", zap.Error(err))
	}

	co.succeed(msg, "Logged out")
	return nil
}

// VerifyEmail resolves an email verification link.
func (co *Coordinator) VerifyEmail(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return co.fail(opLogin, fmt.Errorf("%w: user id and token are required", api.ErrValidation))
	}

	msg, err := co.api.Auth().VerifyEmail(ctx, userID, token)
	if err != nil {
		return co.fail(opLogin, err)
	}

	co.succeed(msg, "Email verified")
	return nil
}

// openSession records a fresh session actor in the cache and the session
// store, and stales the suggestion list which excludes the actor's follows.
func (co *Coordinator) openSession(ctx context.Context, user *api.User) {
	co.cache.Set(cache.CurrentUserKey(), user)
	co.cache.Invalidate(ctx, cache.SuggestedUsersKey())

	if err := co.store.SaveUser(ctx, user); err != nil {
		co.logger.Warn("Failed to persist user", zap.Error(err))
	}

	if cookie := co.cookies.Cookie(); cookie != "" {
		if err := co.store.SaveCookie(ctx, cookie); err != nil {
			co.logger.Warn("Failed to persist session cookie", zap.Error(err))
		}
	}
}
