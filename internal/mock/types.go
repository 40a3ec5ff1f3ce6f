package mock

import "time"

// Config represents the fake portal configuration
type Config struct {
	Port int    `json:"port" yaml:"port"` // Server port (default: 8080)
	Host string `json:"host" yaml:"host"` // Server host (default: localhost)

	// Username and Password, when set, are the only accepted login
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	Segments       int  `json:"segments" yaml:"segments"`                                   // Segments per manifest (default: 4)
	SegmentSize    int  `json:"segmentSize" yaml:"segment_size"`                            // Segment payload in bytes (default: 1024)
	Delay          int  `json:"delay,omitempty" yaml:"delay,omitempty"`                     // Response delay in milliseconds
	FailTokenEvery int  `json:"failTokenEvery,omitempty" yaml:"fail_token_every,omitempty"` // Every Nth token request fails (0: never)
	Logging        bool `json:"logging" yaml:"logging"`                                     // Keep a request log
}

// RequestLog represents a logged request
type RequestLog struct {
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Route     string        `json:"route"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
}

// Stats counts requests per endpoint
type Stats struct {
	Logins     int64 `json:"logins" yaml:"logins"`
	KeepAlives int64 `json:"keepAlives" yaml:"keep_alives"`
	Starts     int64 `json:"starts" yaml:"starts"`
	Manifests  int64 `json:"manifests" yaml:"manifests"`
	Segments   int64 `json:"segments" yaml:"segments"`
	Rejected   int64 `json:"rejected" yaml:"rejected"`
}
