package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/pkg/client"
	"go.uber.org/zap"
)

// Client issues credentialed JSON requests against the backend origin.
// It performs no caching and no retries; reads and writes go through separate
// underlying HTTP clients so transport middleware applied to reads (circuit
// breaker, request coalescing) never touches mutations.
type Client struct {
	baseURL string
	reads   *client.Client
	writes  *client.Client
	logger  *zap.Logger
}

// NewClient creates a Client for the given backend origin.
func NewClient(baseURL string, reads, writes *client.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		reads:   reads,
		writes:  writes,
		logger:  logger.Named("api"),
	}
}

// Auth returns the authentication resource.
func (c *Client) Auth() *AuthResource { return &AuthResource{client: c} }

// Users returns the users resource.
func (c *Client) Users() *UsersResource { return &UsersResource{client: c} }

// Posts returns the posts resource.
func (c *Client) Posts() *PostsResource { return &PostsResource{client: c} }

// envelope is the application-level response wrapper used by every endpoint.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// get issues a read request and decodes the data payload into out.
func (c *Client) get(ctx context.Context, path string, out any) (string, error) {
	return c.do(ctx, c.reads, http.MethodGet, path, nil, out)
}

// post issues a write request and decodes the data payload into out.
func (c *Client) post(ctx context.Context, path string, body, out any) (string, error) {
	return c.do(ctx, c.writes, http.MethodPost, path, body, out)
}

// delete issues a DELETE request and decodes the data payload into out.
func (c *Client) delete(ctx context.Context, path string, out any) (string, error) {
	return c.do(ctx, c.writes, http.MethodDelete, path, nil, out)
}

// do performs one request and maps the outcome onto the error taxonomy.
// The HTTP status decides success; the JSON body is payload only.
func (c *Client) do(
	ctx context.Context, httpClient *client.Client, method, path string, body, out any,
) (string, error) {
	builder := httpClient.NewRequest().
		Method(method).
		URL(c.baseURL + path)
	if body != nil {
		builder = builder.
			MarshalBody(body).
			Header("Content-Type", "application/json")
	}

	resp, err := builder.Do(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", c.errorFromBody(resp.StatusCode, raw)
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("%w: %w", ErrParse, err)
	}

	if out != nil && len(env.Data) > 0 {
		if err := sonic.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("%w: %w", ErrParse, err)
		}
	}

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	return env.Message, nil
}

// errorFromBody builds an Error from a non-success response. When the body
// does not carry the structured envelope, the raw body becomes the message.
func (c *Client) errorFromBody(status int, raw []byte) *Error {
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return &Error{Status: status, Message: env.Message}
	}
	return &Error{Status: status, Message: strings.TrimSpace(string(raw))}
}
