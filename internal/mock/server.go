// Package mock serves a fake agency portal and media API for rehearsing
// load runs without touching a real agency.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/studiowebux/streamload/internal/auth"
	"github.com/studiowebux/streamload/internal/media"
	"github.com/studiowebux/streamload/internal/stresstest"
)

const maxLogs = 1000

// Server represents the fake portal
type Server struct {
	config     *Config
	httpServer *http.Server
	listener   net.Listener
	logs       []RequestLog
	logsMutex  sync.RWMutex
	sessions   sync.Map // session cookie value -> username

	logins     stresstest.AtomicCounter
	keepAlives stresstest.AtomicCounter
	starts     stresstest.AtomicCounter
	manifests  stresstest.AtomicCounter
	segments   stresstest.AtomicCounter
	rejected   stresstest.AtomicCounter
}

// NewServer creates a new fake portal
func NewServer(config *Config) *Server {
	applyDefaults(config)
	return &Server{
		config: config,
		logs:   make([]RequestLog, 0),
	}
}

// Handler returns the portal routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.aspx", s.wrap("portal", s.handlePortal))
	mux.HandleFunc("/api/v1/media/start", s.wrap("start", s.handleStart))
	mux.HandleFunc("/api/v1/media/hls/variant", s.wrap("variant", s.handleVariant))
	mux.HandleFunc("/api/v1/media/hls/segment/", s.wrap("segment", s.handleSegment))
	return mux
}

// Start starts listening in the background
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("mock portal stopped")
		}
	}()

	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// GetAddress returns the host:port the server listens on
func (s *Server) GetAddress() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// wrap applies the configured delay and logs the request
func (s *Server) wrap(route string, h func(w http.ResponseWriter, r *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if s.config.Delay > 0 {
			select {
			case <-time.After(time.Duration(s.config.Delay) * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}

		status := h(w, r)
		if status >= http.StatusBadRequest {
			s.rejected.Inc()
		}

		if s.config.Logging {
			s.logRequest(RequestLog{
				Timestamp: start,
				Method:    r.Method,
				Path:      r.URL.Path,
				Route:     route,
				Status:    status,
				Duration:  time.Since(start),
			})
		}
	}
}

func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) int {
	if r.URL.Query().Get("proc") == "KeepAlive" {
		s.keepAlives.Inc()
		return writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}

	if r.Method != http.MethodPost {
		return writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
	if err := r.ParseForm(); err != nil {
		return writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
	if r.PostForm.Get("proc") != "Login" {
		return writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown proc"})
	}

	s.logins.Inc()
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || r.PostForm.Get("partner_id") == "" ||
		(s.config.Username != "" && username != s.config.Username) ||
		(s.config.Password != "" && password != s.config.Password) {
		return writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
	}

	session := uuid.NewString()
	s.sessions.Store(session, username)
	http.SetCookie(w, &http.Cookie{Name: auth.SessionCookie, Value: session, Path: "/", HttpOnly: true})
	return writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) authorized(r *http.Request) bool {
	c, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return false
	}
	_, ok := s.sessions.Load(c.Value)
	return ok
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) int {
	if !s.authorized(r) {
		return writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "not logged in"})
	}

	n := s.starts.Inc()
	if s.config.FailTokenEvery > 0 && n%int64(s.config.FailTokenEvery) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("<html><body>Service Unavailable</body></html>"))
		return http.StatusServiceUnavailable
	}

	return writeJSON(w, http.StatusOK, map[string]any{media.TokenPath: uuid.NewString()})
}

func (s *Server) handleVariant(w http.ResponseWriter, r *http.Request) int {
	if !s.authorized(r) {
		return writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "not logged in"})
	}
	token := r.URL.Query().Get("streamingSessionToken")
	if token == "" {
		return writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing streaming session token"})
	}

	s.manifests.Inc()

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n")
	for i := 0; i < s.config.Segments; i++ {
		fmt.Fprintf(&b, "#EXTINF:6.000,\n/api/v1/media/hls/segment/%d.ts?streamingSessionToken=%s\n", i, token)
	}
	b.WriteString("#EXT-X-ENDLIST\n")

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(b.String()))
	return http.StatusOK
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) int {
	if !s.authorized(r) {
		return writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "not logged in"})
	}

	s.segments.Inc()
	w.Header().Set("Content-Type", "video/mp2t")
	w.WriteHeader(http.StatusOK)
	w.Write(make([]byte, s.config.SegmentSize))
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, body any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
	return status
}

// logRequest adds a request to the log
func (s *Server) logRequest(entry RequestLog) {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.logs = append(s.logs, entry)

	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
}

// GetLogs returns all logged requests
func (s *Server) GetLogs() []RequestLog {
	s.logsMutex.RLock()
	defer s.logsMutex.RUnlock()

	logs := make([]RequestLog, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// ClearLogs clears all logged requests
func (s *Server) ClearLogs() {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.logs = make([]RequestLog, 0)
}

// Stats returns the request counts so far
func (s *Server) Stats() Stats {
	return Stats{
		Logins:     s.logins.Value(),
		KeepAlives: s.keepAlives.Value(),
		Starts:     s.starts.Value(),
		Manifests:  s.manifests.Value(),
		Segments:   s.segments.Value(),
		Rejected:   s.rejected.Value(),
	}
}
