package api

import "time"

// User is the full user record as returned by the auth and profile endpoints.
// Following and Bookmarks are id sets the cache layer treats as the canonical
// source for follow and bookmark facts about the signed-in actor.
type User struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Bio        string    `json:"bio"`
	Link       string    `json:"link"`
	ProfileImg string    `json:"profileImg"`
	CoverImg   string    `json:"coverImg"`
	Followers  []string  `json:"followers"`
	Following  []string  `json:"following"`
	Bookmarks  []string  `json:"bookmarks"`
	IsOnline   bool      `json:"isOnline"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UserSummary is the lightweight projection of a user used in lists
// such as suggestions, followers, followings and search results.
type UserSummary struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	ProfileImg string `json:"profileImg"`
	IsOnline   bool   `json:"isOnline"`
}

// Comment is owned by exactly one post and is append-only.
type Comment struct {
	ID            string       `json:"_id"`
	Text          string       `json:"text"`
	Author        string       `json:"author"`
	AuthorDetails *UserSummary `json:"authorDetails,omitempty"`
}

// Post is a single post as it appears inside feed collections.
type Post struct {
	ID            string       `json:"_id"`
	Author        string       `json:"author"`
	AuthorDetails *UserSummary `json:"authorDetails,omitempty"`
	Text          string       `json:"text"`
	Img           string       `json:"img,omitempty"`
	Likes         []string     `json:"likes"`
	Comments      []Comment    `json:"comments"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// FeedKind selects which post collection a feed request targets.
type FeedKind string

const (
	FeedForYou    FeedKind = "for_you"
	FeedFollowing FeedKind = "following"
	FeedUser      FeedKind = "user"
	FeedLikes     FeedKind = "likes"
	FeedBookmarks FeedKind = "bookmarks"
)

// Valid reports whether the kind is one of the known feed kinds.
func (f FeedKind) Valid() bool {
	switch f {
	case FeedForYou, FeedFollowing, FeedUser, FeedLikes, FeedBookmarks:
		return true
	default:
		return false
	}
}

// NeedsSubject reports whether the kind is parameterized by a user id.
func (f FeedKind) NeedsSubject() bool {
	return f == FeedUser || f == FeedLikes
}

// ProfileBundle groups the independently fetched pieces of a profile page.
type ProfileBundle struct {
	Profile    *User
	Followers  []*UserSummary
	Followings []*UserSummary
}
