package executor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/studiowebux/streamload/internal/types"
)

const (
	// HTTP client configuration timeouts
	TCPDialTimeout        = 5 * time.Second
	TCPKeepAliveInterval  = 30 * time.Second
	TLSHandshakeTimeout   = 5 * time.Second
	IdleConnTimeout       = 90 * time.Second
	ExpectContinueTimeout = 1 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// ClientOptions configures the shared HTTP client
type ClientOptions struct {
	// IdleConns sizes the idle connection pool, usually the number of
	// sessions that can be live at once. Open connections are not capped.
	IdleConns int
	Timeout  time.Duration
	TLS      *types.TLSConfig
}

// NewClient creates an HTTP client with connection pooling, timeouts and
// optional TLS/mTLS configuration. One client is shared by every session.
func NewClient(opts ClientOptions) (*http.Client, error) {
	if opts.IdleConns <= 0 {
		opts.IdleConns = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        opts.IdleConns,
		MaxIdleConnsPerHost: opts.IdleConns,
		IdleConnTimeout:     IdleConnTimeout,
		ForceAttemptHTTP2:   true,
		Proxy:               http.ProxyFromEnvironment,

		DialContext: (&net.Dialer{
			Timeout:   TCPDialTimeout,
			KeepAlive: TCPKeepAliveInterval,
		}).DialContext,

		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.Timeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}

	if !opts.TLS.IsZero() {
		tlsCfg, err := buildTLSConfig(opts.TLS)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsCfg
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}, nil
}

func buildTLSConfig(tlsConfig *types.TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: tlsConfig.InsecureSkipVerify,
	}

	// Client certificate (mTLS)
	if tlsConfig.CertFile != "" && tlsConfig.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if tlsConfig.CAFile != "" {
		caCert, err := os.ReadFile(tlsConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsCfg.RootCAs = caCertPool
	}

	return tlsCfg, nil
}

// Execute performs an HTTP request with the shared client.
// A transport failure is returned as an error; any response, whatever its
// status, is returned as a result.
func Execute(ctx context.Context, client *http.Client, req *types.HttpRequest) (*types.RequestResult, error) {
	startTime := time.Now()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	requestSize := 0
	if len(req.Form) > 0 {
		encoded := req.Form.Encode()
		bodyReader = strings.NewReader(encoded)
		requestSize = len(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	for _, c := range req.Cookies {
		httpReq.AddCookie(c)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL, err)
	}
	defer resp.Body.Close()

	result := &types.RequestResult{
		Status:      resp.StatusCode,
		StatusText:  resp.Status,
		Cookies:     resp.Cookies(),
		RequestSize: requestSize,
	}

	if req.DiscardBody {
		n, err := io.Copy(io.Discard, resp.Body)
		result.ResponseSize = n
		result.Duration = time.Since(startTime).Milliseconds()
		if err != nil {
			return result, fmt.Errorf("failed to read response body: %w", err)
		}
		return result, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	result.Body = string(bodyBytes)
	result.ResponseSize = int64(len(bodyBytes))
	result.Duration = time.Since(startTime).Milliseconds()
	if err != nil {
		return result, fmt.Errorf("failed to read response body: %w", err)
	}

	return result, nil
}

// FormatDuration formats duration in milliseconds to human-readable string
func FormatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	return fmt.Sprintf("%.2fs", seconds)
}

// IsSuccessStatus returns true if status code is 2xx
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
