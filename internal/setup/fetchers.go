package setup

import (
	"context"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
)

// RegisterFetchers binds every cache key kind to the API call that loads
// its authoritative value. The bindings are what let invalidation refetch
// in the background without the caller knowing the endpoint.
func RegisterFetchers(c *cache.Cache, apiClient *api.Client) {
	c.RegisterFetcher(cache.KindCurrentUser, func(ctx context.Context, _ cache.Key) (any, error) {
		return apiClient.Auth().Me(ctx)
	})

	c.RegisterFetcher(cache.KindSuggestedUsers, func(ctx context.Context, _ cache.Key) (any, error) {
		return apiClient.Users().Suggestions(ctx)
	})

	c.RegisterFetcher(cache.KindUserProfile, func(ctx context.Context, key cache.Key) (any, error) {
		return apiClient.Users().Profile(ctx, key.Subject)
	})

	c.RegisterFetcher(cache.KindFollowStatus, func(ctx context.Context, key cache.Key) (any, error) {
		return apiClient.Users().FollowStatus(ctx, key.Subject)
	})

	c.RegisterFetcher(cache.KindFollowers, func(ctx context.Context, key cache.Key) (any, error) {
		return apiClient.Users().Followers(ctx, key.Subject)
	})

	c.RegisterFetcher(cache.KindFollowings, func(ctx context.Context, key cache.Key) (any, error) {
		return apiClient.Users().Followings(ctx, key.Subject)
	})

	c.RegisterFetcher(cache.KindFeed, func(ctx context.Context, key cache.Key) (any, error) {
		return apiClient.Posts().Feed(ctx, key.Feed, key.Subject)
	})

	c.RegisterFetcher(cache.KindSearchResults, func(ctx context.Context, _ cache.Key) (any, error) {
		return apiClient.Users().All(ctx)
	})
}
