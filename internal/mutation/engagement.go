package mutation

import (
	"context"
	"fmt"
	"strings"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/pkg/utils"
)

// Like toggles the actor's like on a post. The confirmed liker set is
// patched into every cached feed containing the post so no two feeds can
// disagree about it.
func (co *Coordinator) Like(ctx context.Context, postID string) error {
	if postID == "" {
		return co.fail(opLike, fmt.Errorf("%w: post id is required", api.ErrValidation))
	}

	release, err := co.begin(opLike, postID)
	if err != nil {
		return co.fail(opLike, err)
	}
	defer release()

	updatedLikes, msg, err := co.api.Posts().Like(ctx, postID)
	if err != nil {
		return co.fail(opLike, err)
	}

	co.patchPostInAllFeeds(postID, func(post *api.Post) *api.Post {
		clone := *post
		clone.Likes = updatedLikes
		return &clone
	})

	co.succeed(msg, "Post liked")
	return nil
}

// Bookmark toggles a bookmark on a post. When the post is currently
// bookmarked it is optimistically removed from the cached bookmarks feed;
// the removal is rolled back if the call fails. The confirmed bookmark set
// is patched into the actor's record and the bookmarks feed is refetched.
func (co *Coordinator) Bookmark(ctx context.Context, postID string) error {
	if postID == "" {
		return co.fail(opBookmark, fmt.Errorf("%w: post id is required", api.ErrValidation))
	}

	release, err := co.begin(opBookmark, postID)
	if err != nil {
		return co.fail(opBookmark, err)
	}
	defer release()

	bookmarksKey := cache.FeedKey(api.FeedBookmarks, "")

	// Optimistic removal, mirroring the immediate disappearance the view
	// expects when un-bookmarking from the bookmarks page.
	var rollback func()

	if user, ok := co.currentUser(); ok && utils.ContainsID(user.Bookmarks, postID) {
		if previous, _, ok := cache.ValueOf[[]*api.Post](co.cache, bookmarksKey); ok {
			removed := cache.PatchIfPresent(co.cache, bookmarksKey, func(posts []*api.Post) ([]*api.Post, bool) {
				result := make([]*api.Post, 0, len(posts))
				for _, post := range posts {
					if post.ID != postID {
						result = append(result, post)
					}
				}
				return result, len(result) != len(posts)
			})
			if removed {
				rollback = func() { co.cache.Set(bookmarksKey, previous) }
			}
		}
	}

	bookmarkedPosts, msg, err := co.api.Posts().Bookmark(ctx, postID)
	if err != nil {
		if rollback != nil {
			rollback()
		}
		return co.fail(opBookmark, err)
	}

	cache.PatchIfPresent(co.cache, cache.CurrentUserKey(), func(user *api.User) (*api.User, bool) {
		if user == nil {
			return user, false
		}
		clone := *user
		clone.Bookmarks = bookmarkedPosts
		return &clone, true
	})

	// Confirmed list refetch.
	co.cache.Invalidate(ctx, bookmarksKey)

	co.succeed(msg, "Bookmarks updated")
	return nil
}

// Comment appends a comment to a post and patches the returned comment
// list into every cached feed containing the post.
func (co *Coordinator) Comment(ctx context.Context, postID, text string) error {
	if postID == "" {
		return co.fail(opComment, fmt.Errorf("%w: post id is required", api.ErrValidation))
	}

	if strings.TrimSpace(text) == "" {
		return co.fail(opComment, fmt.Errorf("%w: comment text is required", api.ErrValidation))
	}

	release, err := co.begin(opComment, postID)
	if err != nil {
		return co.fail(opComment, err)
	}
	defer release()

	updated, msg, err := co.api.Posts().Comment(ctx, postID, text)
	if err != nil {
		return co.fail(opComment, err)
	}

	if updated != nil {
		co.patchPostInAllFeeds(postID, func(post *api.Post) *api.Post {
			clone := *post
			clone.Comments = updated.Comments
			return &clone
		})
	}

	co.succeed(msg, "Comment posted")
	return nil
}

// DeletePost removes a post and invalidates every cached feed, since the
// post may appear in several of them.
func (co *Coordinator) DeletePost(ctx context.Context, postID string) error {
	if postID == "" {
		return co.fail(opDeletePost, fmt.Errorf("%w: post id is required", api.ErrValidation))
	}

	release, err := co.begin(opDeletePost, postID)
	if err != nil {
		return co.fail(opDeletePost, err)
	}
	defer release()

	msg, err := co.api.Posts().Delete(ctx, postID)
	if err != nil {
		return co.fail(opDeletePost, err)
	}

	co.cache.InvalidateMany(ctx, co.cache.KeysOf(cache.KindFeed)...)

	co.succeed(msg, "Post deleted")
	return nil
}

// patchPostInAllFeeds applies fn to the matching post in every cached feed.
// Feeds that do not contain the post are left untouched, staleness intact.
func (co *Coordinator) patchPostInAllFeeds(postID string, fn func(post *api.Post) *api.Post) {
	for _, key := range co.cache.KeysOf(cache.KindFeed) {
		cache.PatchIfPresent(co.cache, key, func(posts []*api.Post) ([]*api.Post, bool) {
			patched := false
			result := make([]*api.Post, len(posts))

			for i, post := range posts {
				if post.ID == postID {
					result[i] = fn(post)
					patched = true
				} else {
					result[i] = post
				}
			}

			if !patched {
				return posts, false
			}
			return result, true
		})
	}
}
