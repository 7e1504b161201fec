package cache_test

import (
	"testing"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"github.com/stretchr/testify/assert"
)

func TestFeedKeyDropsSubjectForGlobalFeeds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, cache.FeedKey(api.FeedBookmarks, ""), cache.FeedKey(api.FeedBookmarks, "u1"))
	assert.Equal(t, cache.FeedKey(api.FeedForYou, ""), cache.FeedKey(api.FeedForYou, "u1"))
}

func TestFeedKeyKeepsSubjectForUserFeeds(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, cache.FeedKey(api.FeedUser, "u1"), cache.FeedKey(api.FeedUser, "u2"))
	assert.NotEqual(t, cache.FeedKey(api.FeedLikes, "u1"), cache.FeedKey(api.FeedLikes, "u2"))
}

func TestKeyStringsAreDistinct(t *testing.T) {
	t.Parallel()

	keys := []cache.Key{
		cache.CurrentUserKey(),
		cache.SuggestedUsersKey(),
		cache.UserProfileKey("alice"),
		cache.FollowStatusKey("u1"),
		cache.FollowersKey("u1"),
		cache.FollowingsKey("u1"),
		cache.FeedKey(api.FeedForYou, ""),
		cache.FeedKey(api.FeedUser, "u1"),
		cache.SearchResultsKey(),
	}

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		_, dup := seen[key.String()]
		assert.False(t, dup, "duplicate key string %q", key.String())
		seen[key.String()] = struct{}{}
	}
}
