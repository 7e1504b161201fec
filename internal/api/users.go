package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// UsersResource exposes the user, profile and follow endpoints.
type UsersResource struct {
	client *Client
}

// UpdateProfileParams carries the editable profile fields.
// Zero-valued fields are omitted from the request body.
type UpdateProfileParams struct {
	FullName        string `json:"fullName,omitempty"`
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Link            string `json:"link,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
	ProfileImg      string `json:"profileImg,omitempty"`
	CoverImg        string `json:"coverImg,omitempty"`
}

// Suggestions fetches users the backend recommends following.
func (r *UsersResource) Suggestions(ctx context.Context) ([]*UserSummary, error) {
	var data struct {
		Suggestions []*UserSummary `json:"suggestions"`
	}
	if _, err := r.client.get(ctx, "/api/v1/users/getusers/suggestions", &data); err != nil {
		return nil, err
	}
	return data.Suggestions, nil
}

// All fetches the searchable user directory.
func (r *UsersResource) All(ctx context.Context) ([]*UserSummary, error) {
	var data struct {
		Users []*UserSummary `json:"users"`
	}
	if _, err := r.client.get(ctx, "/api/v1/users/getusers/users", &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}

// Profile fetches the full user record for a username.
func (r *UsersResource) Profile(ctx context.Context, username string) (*User, error) {
	var data userData
	path := "/api/v1/users/profile/" + url.PathEscape(username)
	if _, err := r.client.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

// Followers fetches the users following the given user.
func (r *UsersResource) Followers(ctx context.Context, userID string) ([]*UserSummary, error) {
	var data struct {
		Followers []*UserSummary `json:"followers"`
	}
	path := "/api/v1/users/getfollowers/" + url.PathEscape(userID)
	if _, err := r.client.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Followers, nil
}

// Followings fetches the users the given user follows.
func (r *UsersResource) Followings(ctx context.Context, userID string) ([]*UserSummary, error) {
	var data struct {
		Followings []*UserSummary `json:"followings"`
	}
	path := "/api/v1/users/getfollowings/" + url.PathEscape(userID)
	if _, err := r.client.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Followings, nil
}

// FollowStatus reports whether the current actor follows the given user.
func (r *UsersResource) FollowStatus(ctx context.Context, userID string) (bool, error) {
	var data struct {
		Follows bool `json:"follows"`
	}
	path := "/api/v1/users/user/follows/" + url.PathEscape(userID)
	if _, err := r.client.get(ctx, path, &data); err != nil {
		return false, err
	}
	return data.Follows, nil
}

// Follow toggles the follow edge towards the given user.
// Returns the new state of the edge.
func (r *UsersResource) Follow(ctx context.Context, userID string) (bool, string, error) {
	var data struct {
		Follows bool `json:"follows"`
	}
	path := "/api/v1/users/follow/" + url.PathEscape(userID)
	msg, err := r.client.post(ctx, path, nil, &data)
	if err != nil {
		return false, "", err
	}
	return data.Follows, msg, nil
}

// Update edits the current actor's profile and returns the updated record.
func (r *UsersResource) Update(ctx context.Context, params UpdateProfileParams) (*User, string, error) {
	var data userData
	msg, err := r.client.post(ctx, "/api/v1/users/update", params, &data)
	if err != nil {
		return nil, "", err
	}
	return data.User, msg, nil
}

// ProfileBundle fetches a profile page's record, followers and followings
// concurrently. Partial failures are logged and leave the slot nil so one
// slow or failing list does not sink the whole page.
func (r *UsersResource) ProfileBundle(ctx context.Context, username, userID string) (*ProfileBundle, error) {
	bundle := &ProfileBundle{}
	p := pool.New().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		profile, err := r.Profile(ctx, username)
		if err != nil {
			return err
		}
		bundle.Profile = profile
		return nil
	})

	p.Go(func(ctx context.Context) error {
		followers, err := r.Followers(ctx, userID)
		if err != nil {
			r.client.logger.Warn("Failed to fetch followers",
				zap.String("userID", userID),
				zap.Error(err))
			return nil
		}
		bundle.Followers = followers
		return nil
	})

	p.Go(func(ctx context.Context) error {
		followings, err := r.Followings(ctx, userID)
		if err != nil {
			r.client.logger.Warn("Failed to fetch followings",
				zap.String("userID", userID),
				zap.Error(err))
			return nil
		}
		bundle.Followings = followings
		return nil
	})

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch profile bundle: %w", err)
	}

	return bundle, nil
}
