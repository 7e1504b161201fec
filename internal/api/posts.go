package api

import (
	"context"
	"fmt"
	"net/url"
)

// PostsResource exposes the post feed and engagement endpoints.
type PostsResource struct {
	client *Client
}

// ErrUnknownFeed indicates a feed kind outside the closed set.
var ErrUnknownFeed = fmt.Errorf("%w: unknown feed kind", ErrValidation)

// feedPath maps a feed kind and optional subject user id to its endpoint.
func feedPath(kind FeedKind, subjectID string) (string, error) {
	switch kind {
	case FeedForYou:
		return "/api/v1/posts/all", nil
	case FeedFollowing:
		return "/api/v1/posts/following", nil
	case FeedUser:
		return "/api/v1/posts/posts/" + url.PathEscape(subjectID), nil
	case FeedLikes:
		return "/api/v1/posts/likes/" + url.PathEscape(subjectID), nil
	case FeedBookmarks:
		return "/api/v1/posts/bookmarks", nil
	default:
		return "", ErrUnknownFeed
	}
}

// Feed fetches the post collection for the given feed kind.
// subjectID is required for the user and likes kinds and ignored otherwise.
func (r *PostsResource) Feed(ctx context.Context, kind FeedKind, subjectID string) ([]*Post, error) {
	if kind.NeedsSubject() && subjectID == "" {
		return nil, fmt.Errorf("%w: feed %q requires a subject user id", ErrValidation, kind)
	}

	path, err := feedPath(kind, subjectID)
	if err != nil {
		return nil, err
	}

	var data struct {
		Posts []*Post `json:"posts"`
	}
	if _, err := r.client.get(ctx, path, &data); err != nil {
		return nil, err
	}
	return data.Posts, nil
}

// Comment appends a comment to a post and returns the updated post.
func (r *PostsResource) Comment(ctx context.Context, postID, text string) (*Post, string, error) {
	var data struct {
		Post *Post `json:"post"`
	}
	path := "/api/v1/posts/comment/" + url.PathEscape(postID)
	body := map[string]string{"text": text}
	msg, err := r.client.post(ctx, path, body, &data)
	if err != nil {
		return nil, "", err
	}
	return data.Post, msg, nil
}

// Like toggles the current actor's like on a post and returns the
// confirmed liker id set.
func (r *PostsResource) Like(ctx context.Context, postID string) ([]string, string, error) {
	var data struct {
		UpdatedLikes []string `json:"updatedLikes"`
	}
	path := "/api/v1/posts/like/" + url.PathEscape(postID)
	msg, err := r.client.post(ctx, path, nil, &data)
	if err != nil {
		return nil, "", err
	}
	return data.UpdatedLikes, msg, nil
}

// Bookmark toggles a bookmark on a post and returns the confirmed
// bookmarked post id set.
func (r *PostsResource) Bookmark(ctx context.Context, postID string) ([]string, string, error) {
	var data struct {
		BookmarkedPosts []string `json:"bookmarkedPosts"`
	}
	path := "/api/v1/posts/bookmark/" + url.PathEscape(postID)
	msg, err := r.client.post(ctx, path, nil, &data)
	if err != nil {
		return nil, "", err
	}
	return data.BookmarkedPosts, msg, nil
}

// Delete removes a post owned by the current actor.
func (r *PostsResource) Delete(ctx context.Context, postID string) (string, error) {
	return r.client.delete(ctx, "/api/v1/posts/"+url.PathEscape(postID), nil)
}
