package cache

import (
	"fmt"

	"github.com/chirpnet/chirp/internal/api"
)

// Kind enumerates the closed set of cached query identities.
type Kind uint8

const (
	// KindCurrentUser holds the signed-in actor's full record.
	KindCurrentUser Kind = iota + 1
	// KindSuggestedUsers holds the follow-suggestion list.
	KindSuggestedUsers
	// KindUserProfile holds another user's full record, by username.
	KindUserProfile
	// KindFollowStatus holds a single follow flag towards a user id.
	KindFollowStatus
	// KindFollowers holds the follower list of a user id.
	KindFollowers
	// KindFollowings holds the following list of a user id.
	KindFollowings
	// KindFeed holds a named post collection.
	KindFeed
	// KindSearchResults holds the user directory used for search.
	KindSearchResults
)

// String returns the kind's wire-stable name.
func (k Kind) String() string {
	switch k {
	case KindCurrentUser:
		return "current_user"
	case KindSuggestedUsers:
		return "suggested_users"
	case KindUserProfile:
		return "user_profile"
	case KindFollowStatus:
		return "follow_status"
	case KindFollowers:
		return "followers"
	case KindFollowings:
		return "followings"
	case KindFeed:
		return "feed"
	case KindSearchResults:
		return "search_results"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Key identifies one cached record or collection. Keys are comparable and
// must be built through the constructors below so the key space stays closed.
type Key struct {
	Kind    Kind
	Feed    api.FeedKind // set only for KindFeed
	Subject string       // user id, username or search term depending on Kind
}

// CurrentUserKey returns the fixed key for the session actor's record.
func CurrentUserKey() Key {
	return Key{Kind: KindCurrentUser}
}

// SuggestedUsersKey returns the key for the follow-suggestion list.
func SuggestedUsersKey() Key {
	return Key{Kind: KindSuggestedUsers}
}

// UserProfileKey returns the key for a profile record by username.
func UserProfileKey(username string) Key {
	return Key{Kind: KindUserProfile, Subject: username}
}

// FollowStatusKey returns the key for the follow flag towards a user.
func FollowStatusKey(userID string) Key {
	return Key{Kind: KindFollowStatus, Subject: userID}
}

// FollowersKey returns the key for a user's follower list.
func FollowersKey(userID string) Key {
	return Key{Kind: KindFollowers, Subject: userID}
}

// FollowingsKey returns the key for a user's following list.
func FollowingsKey(userID string) Key {
	return Key{Kind: KindFollowings, Subject: userID}
}

// FeedKey returns the key for a post collection. The subject id is kept
// only for feed kinds parameterized by a user.
func FeedKey(feed api.FeedKind, subjectID string) Key {
	if !feed.NeedsSubject() {
		subjectID = ""
	}
	return Key{Kind: KindFeed, Feed: feed, Subject: subjectID}
}

// SearchResultsKey returns the key for the user directory.
func SearchResultsKey() Key {
	return Key{Kind: KindSearchResults}
}

// String renders the key for logs and request coalescing.
func (k Key) String() string {
	switch {
	case k.Kind == KindFeed && k.Subject != "":
		return fmt.Sprintf("%s:%s:%s", k.Kind, k.Feed, k.Subject)
	case k.Kind == KindFeed:
		return fmt.Sprintf("%s:%s", k.Kind, k.Feed)
	case k.Subject != "":
		return fmt.Sprintf("%s:%s", k.Kind, k.Subject)
	default:
		return k.Kind.String()
	}
}
