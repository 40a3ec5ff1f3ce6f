// Package auth performs the form login against the agency portal and the
// periodic keep-alive that holds the resulting session open.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/studiowebux/streamload/internal/executor"
	"github.com/studiowebux/streamload/internal/types"
)

// SessionCookie is the portal's session cookie name
const SessionCookie = "AXONSESSION"

// ErrNoSession is returned when a login response carries no session cookie
var ErrNoSession = errors.New("login response did not set a session cookie")

// Credential is the session obtained by Login. It is shared read-only by
// every simulated client.
type Credential struct {
	Name  string
	Value string
}

// Cookie returns the credential as a request cookie
func (c *Credential) Cookie() *http.Cookie {
	return &http.Cookie{Name: c.Name, Value: c.Value}
}

// Cookies returns the credential as a cookie list, empty for a nil credential
func (c *Credential) Cookies() []*http.Cookie {
	if c == nil {
		return nil
	}
	return []*http.Cookie{c.Cookie()}
}

// Authenticator talks to the portal endpoint of one agency host
type Authenticator struct {
	client  *http.Client
	baseURL string
}

// NewAuthenticator creates an authenticator for baseURL (scheme://host)
func NewAuthenticator(client *http.Client, baseURL string) *Authenticator {
	return &Authenticator{client: client, baseURL: baseURL}
}

// Login exchanges username and password for a session credential
func (a *Authenticator) Login(ctx context.Context, username, password, partnerID string) (*Credential, error) {
	req := &types.HttpRequest{
		Name:   "login",
		Method: http.MethodPost,
		URL:    a.baseURL + "/index.aspx",
		Headers: map[string]string{
			"X-Requested-With": "XMLHttpRequest",
			"Connection":       "keep-alive",
		},
		Form: url.Values{
			"format":      {"json"},
			"class":       {"Subscriber"},
			"proc":        {"Login"},
			"action":      {"login"},
			"resource_id": {"www"},
			"username":    {username},
			"password":    {password},
			"partner_id":  {partnerID},
		},
	}

	result, err := executor.Execute(ctx, a.client, req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	cookie := result.Cookie(SessionCookie)
	if cookie == nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w (status %d)", ErrNoSession, result.Status)
	}

	return &Credential{Name: cookie.Name, Value: cookie.Value}, nil
}

// KeepAliveURL returns the portal keep-alive endpoint
func (a *Authenticator) KeepAliveURL() string {
	return a.baseURL + "/index.aspx?format=json&proc=KeepAlive&token_code_af=a"
}

// KeepAlive pings the portal so the session does not expire. The credential
// may be nil when the ping happens before login completed.
func (a *Authenticator) KeepAlive(ctx context.Context, cred *Credential) error {
	result, err := executor.Execute(ctx, a.client, &types.HttpRequest{
		Name:    "keepalive",
		Method:  http.MethodGet,
		URL:     a.KeepAliveURL(),
		Cookies: cred.Cookies(),
	})
	if err != nil {
		return err
	}
	if !executor.IsSuccessStatus(result.Status) {
		return fmt.Errorf("keep-alive returned %s", result.StatusText)
	}
	return nil
}
