package mutation

import (
	"context"
	"fmt"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"go.uber.org/zap"
)

// UpdateProfile edits the actor's profile. The confirmed record replaces
// CurrentUser, the profile entry is refreshed, and every cached feed is
// invalidated because the author projection embedded in posts may have
// changed.
func (co *Coordinator) UpdateProfile(ctx context.Context, params api.UpdateProfileParams) (*api.User, error) {
	if params == (api.UpdateProfileParams{}) {
		return nil, co.fail(opUpdateProfile, fmt.Errorf("%w: no profile fields to update", api.ErrValidation))
	}

	release, err := co.begin(opUpdateProfile, "self")
	if err != nil {
		return nil, co.fail(opUpdateProfile, err)
	}
	defer release()

	previousUsername := ""
	if user, ok := co.currentUser(); ok {
		previousUsername = user.Username
	}

	updated, msg, err := co.api.Users().Update(ctx, params)
	if err != nil {
		return nil, co.fail(opUpdateProfile, err)
	}

	if updated != nil {
		co.cache.Set(cache.CurrentUserKey(), updated)
		co.cache.Set(cache.UserProfileKey(updated.Username), updated)

		// A rename leaves the old profile entry pointing at a username
		// that no longer resolves.
		if previousUsername != "" && previousUsername != updated.Username {
			co.cache.Invalidate(ctx, cache.UserProfileKey(previousUsername))
		}

		if err := co.store.SaveUser(ctx, updated); err != nil {
			co.logger.Warn("Failed to persist updated user", zap.Error(err))
		}
	}

	co.cache.InvalidateMany(ctx, co.cache.KeysOf(cache.KindFeed)...)

	co.succeed(msg, "Profile updated successfully")
	return updated, nil
}
