package media

import (
	"context"
	"fmt"
	"net/http"

	"github.com/studiowebux/streamload/internal/auth"
	"github.com/studiowebux/streamload/internal/chain"
	"github.com/studiowebux/streamload/internal/executor"
	"github.com/studiowebux/streamload/internal/types"
)

// TokenPath is the JMESPath of the session token in the start response
const TokenPath = "streamingSessionToken"

// StreamAPI is what a session needs from the media API
type StreamAPI interface {
	StartSession(ctx context.Context) (string, error)
	Manifest(ctx context.Context, token string) ([]string, error)
	FetchSegment(ctx context.Context, segmentURL string) error
}

// Client is the HTTP implementation of StreamAPI. It is safe for concurrent
// use and is shared by every session of a run.
type Client struct {
	http      *http.Client
	target    Target
	cred      *auth.Credential
	rendition Rendition
}

// NewClient creates a media API client carrying the given credential
func NewClient(httpClient *http.Client, target Target, cred *auth.Credential) *Client {
	return &Client{
		http:      httpClient,
		target:    target,
		cred:      cred,
		rendition: DefaultRendition,
	}
}

func (c *Client) get(ctx context.Context, name, url string, discard bool) (*types.RequestResult, error) {
	return executor.Execute(ctx, c.http, &types.HttpRequest{
		Name:        name,
		Method:      http.MethodGet,
		URL:         url,
		Cookies:     c.cred.Cookies(),
		DiscardBody: discard,
	})
}

// StartSession starts a streaming session and returns its token
func (c *Client) StartSession(ctx context.Context) (string, error) {
	result, err := c.get(ctx, "start", c.target.StartURL(), false)
	if err != nil {
		return "", err
	}

	token, err := chain.ExtractString(result.Body, TokenPath)
	if err != nil {
		return "", fmt.Errorf("start session (status %d): %w", result.Status, err)
	}
	return token, nil
}

// Manifest fetches the variant manifest and returns its segment URLs
func (c *Client) Manifest(ctx context.Context, token string) ([]string, error) {
	result, err := c.get(ctx, "variant", c.target.VariantURL(token, c.rendition), false)
	if err != nil {
		return nil, err
	}
	return SelectSegments(result.Body, c.target.BaseURL())
}

// FetchSegment downloads one segment and discards it
func (c *Client) FetchSegment(ctx context.Context, segmentURL string) error {
	result, err := c.get(ctx, "segment", segmentURL, true)
	if err != nil {
		return err
	}
	if !executor.IsSuccessStatus(result.Status) {
		return fmt.Errorf("segment returned %s", result.StatusText)
	}
	return nil
}
