package session_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/session"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedisStore(t *testing.T) *session.RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return session.NewRedisStore(client, zap.NewNop())
}

func TestRedisStoreCookieRoundTrip(t *testing.T) {
	t.Parallel()

	store := setupRedisStore(t)
	ctx := t.Context()

	_, err := store.LoadCookie(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.SaveCookie(ctx, "token123"))

	cookie, err := store.LoadCookie(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token123", cookie)
}

func TestRedisStoreUserRoundTrip(t *testing.T) {
	t.Parallel()

	store := setupRedisStore(t)
	ctx := t.Context()

	_, err := store.LoadUser(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)

	user := &api.User{ID: "u1", Username: "alice", Following: []string{"u2"}}
	require.NoError(t, store.SaveUser(ctx, user))

	loaded, err := store.LoadUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", loaded.ID)
	assert.Equal(t, "alice", loaded.Username)
	assert.Equal(t, []string{"u2"}, loaded.Following)
}

func TestRedisStoreClear(t *testing.T) {
	t.Parallel()

	store := setupRedisStore(t)
	ctx := t.Context()

	require.NoError(t, store.SaveCookie(ctx, "token123"))
	require.NoError(t, store.SaveUser(ctx, &api.User{ID: "u1"}))

	require.NoError(t, store.Clear(ctx))

	_, err := store.LoadCookie(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)

	_, err = store.LoadUser(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	ctx := t.Context()

	_, err := store.LoadCookie(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.SaveCookie(ctx, "token123"))
	require.NoError(t, store.SaveUser(ctx, &api.User{ID: "u1"}))

	cookie, err := store.LoadCookie(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token123", cookie)

	user, err := store.LoadUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	require.NoError(t, store.Clear(ctx))

	_, err = store.LoadCookie(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)
}
