package mutation_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/internal/mutation"
	"github.com/chirpnet/chirp/internal/notify"
	"github.com/chirpnet/chirp/internal/session"
	sessionmw "github.com/chirpnet/chirp/internal/setup/client/interceptor/session"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	cache    *cache.Cache
	coord    *mutation.Coordinator
	notifier *notify.Channel
	cookies  *sessionmw.Middleware
	store    *session.MemoryStore
}

func newTestEnv(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	httpClient := client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
	)

	apiClient := api.NewClient(srv.URL, httpClient, httpClient, zap.NewNop())
	entityCache := cache.New(zap.NewNop())
	notifier := notify.NewChannel(16)
	cookies := sessionmw.New("jwt")
	store := session.NewMemoryStore()

	return &testEnv{
		cache:    entityCache,
		coord:    mutation.New(apiClient, entityCache, store, cookies, notifier, zap.NewNop()),
		notifier: notifier,
		cookies:  cookies,
		store:    store,
	}
}

func writeEnvelope(w http.ResponseWriter, status int, message, data string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == "" {
		fmt.Fprintf(w, `{"message":%q}`, message)
		return
	}
	fmt.Fprintf(w, `{"message":%q,"data":%s}`, message, data)
}

// drainNotifications collects everything currently buffered.
func drainNotifications(n *notify.Channel) []notify.Notification {
	var out []notify.Notification
	for {
		select {
		case notification := <-n.Notifications():
			out = append(out, notification)
		default:
			return out
		}
	}
}

func seedActor(env *testEnv, user *api.User) {
	env.cache.Set(cache.CurrentUserKey(), user)
}

func post(id string, likes []string) *api.Post {
	return &api.Post{ID: id, Author: "author", Text: "hello", Likes: likes}
}

func TestFollowReconcilesCaches(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/follow/u2", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "User followed successfully", `{"follows":true}`)
	}))

	seedActor(env, &api.User{ID: "u1", Username: "alice"})
	env.cache.Set(cache.FollowStatusKey("u2"), false)
	env.cache.Set(cache.FollowersKey("u2"), []*api.UserSummary{})
	env.cache.Set(cache.FollowingsKey("u1"), []*api.UserSummary{})
	env.cache.Set(cache.SuggestedUsersKey(), []*api.UserSummary{{ID: "u2"}})

	follows, err := env.coord.Follow(t.Context(), "u2")
	require.NoError(t, err)
	assert.True(t, follows)

	actor, _, ok := cache.ValueOf[*api.User](env.cache, cache.CurrentUserKey())
	require.True(t, ok)
	assert.Contains(t, actor.Following, "u2")

	status, stale, ok := cache.ValueOf[bool](env.cache, cache.FollowStatusKey("u2"))
	require.True(t, ok)
	assert.True(t, status)
	assert.False(t, stale)

	// Every derived collection mirroring the edge is marked stale.
	for _, key := range []cache.Key{
		cache.FollowersKey("u2"),
		cache.FollowingsKey("u1"),
		cache.SuggestedUsersKey(),
	} {
		entry, ok := env.cache.Get(key)
		require.True(t, ok, "key %s", key)
		assert.True(t, entry.Stale, "key %s", key)
	}

	notifications := drainNotifications(env.notifier)
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.LevelSuccess, notifications[0].Level)
	assert.Equal(t, "User followed successfully", notifications[0].Message)
}

func TestUnfollowRemovesEdge(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, "User unfollowed successfully", `{"follows":false}`)
	}))

	seedActor(env, &api.User{ID: "u1", Following: []string{"u2", "u3"}})

	follows, err := env.coord.Follow(t.Context(), "u2")
	require.NoError(t, err)
	assert.False(t, follows)

	actor, _, _ := cache.ValueOf[*api.User](env.cache, cache.CurrentUserKey())
	assert.Equal(t, []string{"u3"}, actor.Following)
}

func TestDuplicateMutationRejected(t *testing.T) {
	t.Parallel()

	arrived := make(chan struct{})
	release := make(chan struct{})

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(arrived)
		<-release
		writeEnvelope(w, http.StatusOK, "ok", `{"follows":true}`)
	}))

	seedActor(env, &api.User{ID: "u1"})

	firstDone := make(chan error, 1)
	go func() {
		_, err := env.coord.Follow(t.Context(), "u2")
		firstDone <- err
	}()

	<-arrived
	assert.True(t, env.coord.Pending("follow", "u2"))

	_, err := env.coord.Follow(t.Context(), "u2")
	require.ErrorIs(t, err, mutation.ErrPending)

	close(release)
	require.NoError(t, <-firstDone)

	assert.False(t, env.coord.Pending("follow", "u2"))

	// One error for the rejected duplicate, one success for the winner.
	notifications := drainNotifications(env.notifier)
	require.Len(t, notifications, 2)
}

func TestSameTargetDifferentOperationsRunConcurrently(t *testing.T) {
	t.Parallel()

	arrived := make(chan struct{})
	release := make(chan struct{})

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/posts/like/p1" {
			close(arrived)
			<-release
			writeEnvelope(w, http.StatusOK, "liked", `{"updatedLikes":["u1"]}`)
			return
		}
		writeEnvelope(w, http.StatusOK, "bookmarked", `{"bookmarkedPosts":["p1"]}`)
	}))

	seedActor(env, &api.User{ID: "u1"})

	likeDone := make(chan error, 1)
	go func() {
		likeDone <- env.coord.Like(t.Context(), "p1")
	}()

	<-arrived

	// A bookmark on the same post is a different operation and must not
	// be blocked by the in-flight like.
	require.NoError(t, env.coord.Bookmark(t.Context(), "p1"))

	close(release)
	require.NoError(t, <-likeDone)
}

func TestLikePatchesEveryCachedFeed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, "Post liked", `{"updatedLikes":["u1"]}`)
	}))

	seedActor(env, &api.User{ID: "u1"})

	forYou := cache.FeedKey(api.FeedForYou, "")
	following := cache.FeedKey(api.FeedFollowing, "")
	userFeed := cache.FeedKey(api.FeedUser, "u9")

	env.cache.Set(forYou, []*api.Post{post("p1", nil), post("p2", nil)})
	env.cache.Set(following, []*api.Post{post("p1", nil)})
	env.cache.Set(userFeed, []*api.Post{post("p3", nil)})

	require.NoError(t, env.coord.Like(t.Context(), "p1"))

	for _, key := range []cache.Key{forYou, following} {
		posts, stale, ok := cache.ValueOf[[]*api.Post](env.cache, key)
		require.True(t, ok)
		assert.False(t, stale)

		for _, p := range posts {
			if p.ID == "p1" {
				assert.Equal(t, []string{"u1"}, p.Likes, "key %s", key)
			}
		}
	}

	// The feed without the post keeps its contents untouched.
	posts, _, ok := cache.ValueOf[[]*api.Post](env.cache, userFeed)
	require.True(t, ok)
	assert.Empty(t, posts[0].Likes)
}

func TestBookmarkRollsBackOptimisticRemoval(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, "bookmark failed", "")
	}))

	seedActor(env, &api.User{ID: "u1", Bookmarks: []string{"p1"}})

	bookmarksKey := cache.FeedKey(api.FeedBookmarks, "")
	env.cache.Set(bookmarksKey, []*api.Post{post("p1", nil), post("p2", nil)})

	err := env.coord.Bookmark(t.Context(), "p1")
	require.Error(t, err)

	posts, _, ok := cache.ValueOf[[]*api.Post](env.cache, bookmarksKey)
	require.True(t, ok)
	require.Len(t, posts, 2)
	assert.Equal(t, "p1", posts[0].ID)

	notifications := drainNotifications(env.notifier)
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.LevelError, notifications[0].Level)
	assert.Equal(t, "bookmark failed", notifications[0].Message)
}

func TestBookmarkRemovalConfirmed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, "Bookmark removed", `{"bookmarkedPosts":[]}`)
	}))

	seedActor(env, &api.User{ID: "u1", Bookmarks: []string{"p1"}})

	bookmarksKey := cache.FeedKey(api.FeedBookmarks, "")
	env.cache.Set(bookmarksKey, []*api.Post{post("p1", nil)})

	require.NoError(t, env.coord.Bookmark(t.Context(), "p1"))

	posts, _, ok := cache.ValueOf[[]*api.Post](env.cache, bookmarksKey)
	require.True(t, ok)
	assert.Empty(t, posts)

	actor, _, _ := cache.ValueOf[*api.User](env.cache, cache.CurrentUserKey())
	assert.Empty(t, actor.Bookmarks)
}

func TestCommentRequiresText(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("no request expected")
	}))

	err := env.coord.Comment(t.Context(), "p1", "   ")
	require.ErrorIs(t, err, api.ErrValidation)

	notifications := drainNotifications(env.notifier)
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.LevelError, notifications[0].Level)
}

func TestCommentPatchesFeeds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/posts/comment/p1", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "Comment posted",
			`{"post":{"_id":"p1","text":"hello","comments":[{"_id":"c1","text":"nice","author":"u2"}]}}`)
	}))

	forYou := cache.FeedKey(api.FeedForYou, "")
	env.cache.Set(forYou, []*api.Post{post("p1", nil)})

	require.NoError(t, env.coord.Comment(t.Context(), "p1", "nice"))

	posts, _, ok := cache.ValueOf[[]*api.Post](env.cache, forYou)
	require.True(t, ok)
	require.Len(t, posts[0].Comments, 1)
	assert.Equal(t, "nice", posts[0].Comments[0].Text)
}

func TestDeletePostInvalidatesFeeds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeEnvelope(w, http.StatusOK, "Post deleted", "")
	}))

	forYou := cache.FeedKey(api.FeedForYou, "")
	env.cache.Set(forYou, []*api.Post{post("p1", nil)})

	require.NoError(t, env.coord.DeletePost(t.Context(), "p1"))

	entry, ok := env.cache.Get(forYou)
	require.True(t, ok)
	assert.True(t, entry.Stale)
}

func TestExactlyOneNotificationPerFailedAttempt(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, "nope", "")
	}))

	seedActor(env, &api.User{ID: "u1", Following: []string{"u3"}})

	require.Error(t, env.coord.Like(t.Context(), "p1"))

	notifications := drainNotifications(env.notifier)
	require.Len(t, notifications, 1)
	assert.Equal(t, notify.LevelError, notifications[0].Level)
	assert.Equal(t, "nope", notifications[0].Message)

	_, err := env.coord.Follow(t.Context(), "u2")
	require.Error(t, err)

	// A failed follow leaves the actor's record untouched.
	actor, _, ok := cache.ValueOf[*api.User](env.cache, cache.CurrentUserKey())
	require.True(t, ok)
	assert.Equal(t, []string{"u3"}, actor.Following)

	notifications = drainNotifications(env.notifier)
	require.Len(t, notifications, 1)
}

func TestLoginOpensSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "Logged in successfully",
			`{"user":{"_id":"u1","username":"alice"}}`)
	}))

	env.cache.Set(cache.SuggestedUsersKey(), []*api.UserSummary{{ID: "u2"}})

	user, err := env.coord.Login(t.Context(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	actor, _, ok := cache.ValueOf[*api.User](env.cache, cache.CurrentUserKey())
	require.True(t, ok)
	assert.Equal(t, "u1", actor.ID)

	stored, err := env.store.LoadUser(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.ID)

	// The suggestion list excludes followed users, so a new session
	// stales it.
	entry, ok := env.cache.Get(cache.SuggestedUsersKey())
	require.True(t, ok)
	assert.True(t, entry.Stale)
}

func TestLoginRequiresCredentials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("no request expected")
	}))

	_, err := env.coord.Login(t.Context(), "alice", "")
	require.ErrorIs(t, err, api.ErrValidation)
}

func TestLogoutClearsLocalState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "Logged out", "")
	}))

	ctx := t.Context()

	env.cookies.SetCookie("token123")
	require.NoError(t, env.store.SaveCookie(ctx, "token123"))
	require.NoError(t, env.store.SaveUser(ctx, &api.User{ID: "u1"}))
	seedActor(env, &api.User{ID: "u1"})

	require.NoError(t, env.coord.Logout(ctx))

	assert.Empty(t, env.cookies.Cookie())

	_, ok := env.cache.Get(cache.CurrentUserKey())
	assert.False(t, ok)

	_, err := env.store.LoadUser(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestLogoutKeepsStateOnFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, "logout failed", "")
	}))

	env.cookies.SetCookie("token123")
	seedActor(env, &api.User{ID: "u1"})

	require.Error(t, env.coord.Logout(t.Context()))

	assert.Equal(t, "token123", env.cookies.Cookie())

	_, ok := env.cache.Get(cache.CurrentUserKey())
	assert.True(t, ok)
}

func TestCheckAuthTreatsUnauthenticatedAsLoggedOut(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, "unauthorized", "")
	}))

	user, err := env.coord.CheckAuth(t.Context())
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.Empty(t, drainNotifications(env.notifier))
}

func TestCheckAuthPrefersPersistedUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("no request expected")
	}))

	ctx := t.Context()
	require.NoError(t, env.store.SaveUser(ctx, &api.User{ID: "u1", Username: "alice"}))

	user, err := env.coord.CheckAuth(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)

	actor, _, ok := cache.ValueOf[*api.User](env.cache, cache.CurrentUserKey())
	require.True(t, ok)
	assert.Equal(t, "u1", actor.ID)
}

func TestUpdateProfileReplacesActorAndProfile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/update", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "Profile updated",
			`{"user":{"_id":"u1","username":"alice2","bio":"new bio"}}`)
	}))

	seedActor(env, &api.User{ID: "u1", Username: "alice"})
	env.cache.Set(cache.UserProfileKey("alice"), &api.User{ID: "u1", Username: "alice"})

	updated, err := env.coord.UpdateProfile(t.Context(), api.UpdateProfileParams{Bio: "new bio"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)

	actor, _, _ := cache.ValueOf[*api.User](env.cache, cache.CurrentUserKey())
	assert.Equal(t, "new bio", actor.Bio)

	profile, stale, ok := cache.ValueOf[*api.User](env.cache, cache.UserProfileKey("alice2"))
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, "alice2", profile.Username)

	// The entry under the old username is now stale.
	oldEntry, ok := env.cache.Get(cache.UserProfileKey("alice"))
	require.True(t, ok)
	assert.True(t, oldEntry.Stale)
}

func TestUpdateProfileRejectsEmptyParams(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("no request expected")
	}))

	_, err := env.coord.UpdateProfile(t.Context(), api.UpdateProfileParams{})
	require.ErrorIs(t, err, api.ErrValidation)
}
