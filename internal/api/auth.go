package api

import (
	"context"
	"fmt"
	"net/url"
)

// AuthResource exposes the session endpoints.
type AuthResource struct {
	client *Client
}

// LoginParams identifies an account by username or email.
type LoginParams struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// SignupParams creates a new account. The server may normalize the username.
type SignupParams struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleParams signs in through the federated identity provider.
type GoogleParams struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	ProfileImg string `json:"profileImg"`
	FirebaseID string `json:"firebaseId"`
}

// userData is the data payload shape shared by the auth endpoints.
type userData struct {
	User *User `json:"user"`
}

// Me fetches the current session identity. A non-2xx status means the
// session is unauthenticated; callers should check IsUnauthenticated.
func (r *AuthResource) Me(ctx context.Context) (*User, error) {
	var data userData
	if _, err := r.client.get(ctx, "/api/v1/auth/me", &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

// Login exchanges credentials for a session cookie and the user record.
func (r *AuthResource) Login(ctx context.Context, params LoginParams) (*User, string, error) {
	var data userData
	msg, err := r.client.post(ctx, "/api/v1/auth/login", params, &data)
	if err != nil {
		return nil, "", err
	}
	return data.User, msg, nil
}

// Signup registers a new account and opens a session for it.
func (r *AuthResource) Signup(ctx context.Context, params SignupParams) (*User, string, error) {
	var data userData
	msg, err := r.client.post(ctx, "/api/v1/auth/signup", params, &data)
	if err != nil {
		return nil, "", err
	}
	return data.User, msg, nil
}

// Google signs in with a federated identity.
func (r *AuthResource) Google(ctx context.Context, params GoogleParams) (*User, string, error) {
	var data userData
	msg, err := r.client.post(ctx, "/api/v1/auth/google", params, &data)
	if err != nil {
		return nil, "", err
	}
	return data.User, msg, nil
}

// Logout clears the server-side session.
func (r *AuthResource) Logout(ctx context.Context) (string, error) {
	return r.client.post(ctx, "/api/v1/auth/logout", nil, nil)
}

// VerifyEmail resolves an email verification token for the given user.
func (r *AuthResource) VerifyEmail(ctx context.Context, userID, token string) (string, error) {
	path := fmt.Sprintf("/api/v1/auth/%s/verify/%s", url.PathEscape(userID), url.PathEscape(token))
	return r.client.get(ctx, path, nil)
}
