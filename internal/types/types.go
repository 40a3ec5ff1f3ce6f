package types

import (
	"net/http"
	"net/url"
)

// HttpRequest describes one request issued against the media API
type HttpRequest struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Form    url.Values        `json:"form,omitempty" yaml:"form,omitempty"`
	Cookies []*http.Cookie    `json:"-" yaml:"-"`

	// DiscardBody drains the response without keeping it in memory.
	// Used for media segments.
	DiscardBody bool `json:"-" yaml:"-"`
}

// TLSConfig contains TLS/mTLS settings for the shared HTTP client
type TLSConfig struct {
	InsecureSkipVerify bool   `json:"insecureSkipVerify,omitempty" yaml:"insecure_skip_verify,omitempty"`
	CertFile           string `json:"certFile,omitempty" yaml:"cert_file,omitempty"`
	KeyFile            string `json:"keyFile,omitempty" yaml:"key_file,omitempty"`
	CAFile             string `json:"caFile,omitempty" yaml:"ca_file,omitempty"`
}

// IsZero reports whether no TLS option is set
func (t *TLSConfig) IsZero() bool {
	return t == nil || (!t.InsecureSkipVerify && t.CertFile == "" && t.KeyFile == "" && t.CAFile == "")
}

// RequestResult contains the HTTP response data
type RequestResult struct {
	Status       int            `json:"status"`
	StatusText   string         `json:"statusText"`
	Body         string         `json:"body,omitempty"`
	Cookies      []*http.Cookie `json:"-"`
	Duration     int64          `json:"duration"`     // milliseconds
	RequestSize  int            `json:"requestSize"`  // bytes
	ResponseSize int64          `json:"responseSize"` // bytes
}

// Cookie returns the named response cookie, or nil
func (r *RequestResult) Cookie(name string) *http.Cookie {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
