package mutation

import (
	"context"
	"fmt"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/pkg/utils"
)

// Follow toggles the follow edge towards the target user and reconciles
// every cached collection that mirrors the edge. The actor's record and the
// follow flag are patched from the confirmed response; the derived lists
// (followers, followings, suggestions) are invalidated and refetched.
// Returns the new state of the edge.
func (co *Coordinator) Follow(ctx context.Context, targetID string) (bool, error) {
	if targetID == "" {
		return false, co.fail(opFollow, fmt.Errorf("%w: target user id is required", api.ErrValidation))
	}

	release, err := co.begin(opFollow, targetID)
	if err != nil {
		return false, co.fail(opFollow, err)
	}
	defer release()

	follows, msg, err := co.api.Users().Follow(ctx, targetID)
	if err != nil {
		return false, co.fail(opFollow, err)
	}

	// CurrentUser.following is the canonical copy of the edge; patch it
	// from the confirmed state rather than waiting on a refetch.
	cache.PatchIfPresent(co.cache, cache.CurrentUserKey(), func(user *api.User) (*api.User, bool) {
		if user == nil || utils.ContainsID(user.Following, targetID) == follows {
			return user, false
		}

		clone := *user
		clone.Following = utils.ToggleID(clone.Following, targetID)
		return &clone, true
	})

	co.cache.Set(cache.FollowStatusKey(targetID), follows)

	// Derived collections are refetched rather than hand-patched so no
	// sibling copy of the edge can drift.
	keys := []cache.Key{
		cache.FollowersKey(targetID),
		cache.SuggestedUsersKey(),
	}
	if user, ok := co.currentUser(); ok {
		keys = append(keys, cache.FollowingsKey(user.ID))
	}
	co.cache.InvalidateMany(ctx, keys...)

	if follows {
		co.succeed(msg, "Followed")
	} else {
		co.succeed(msg, "Unfollowed")
	}

	return follows, nil
}
