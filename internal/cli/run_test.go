package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/studiowebux/streamload/internal/auth"
	"github.com/studiowebux/streamload/internal/config"
	"github.com/studiowebux/streamload/internal/mock"
	"github.com/studiowebux/streamload/internal/stresstest"
)

func newPortal(t *testing.T, portalConfig mock.Config) (*mock.Server, *httptest.Server) {
	portal := mock.NewServer(&portalConfig)
	server := httptest.NewServer(portal.Handler())
	t.Cleanup(server.Close)
	return portal, server
}

func runConfig(t *testing.T, server *httptest.Server) *config.Run {
	cfg := config.Default()
	cfg.Scheme = "http"
	cfg.Agency = strings.TrimPrefix(server.URL, "http://")
	cfg.Username = "officer"
	cfg.Password = "secret"
	cfg.Batches = 2
	cfg.BatchSize = 3
	cfg.RampUpSec = 0
	cfg.RequestTimeout = 5 * time.Second
	cfg.Database = filepath.Join(t.TempDir(), "history.db")
	return cfg
}

func TestRun_FullRun(t *testing.T) {
	portal, server := newPortal(t, mock.Config{Segments: 4})
	cfg := runConfig(t, server)

	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, &out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.Attempted != 6 || res.Launched != 6 {
		t.Errorf("Expected 6 attempted and launched, got %d/%d", res.Attempted, res.Launched)
	}
	if res.FullPasses != 6 {
		t.Errorf("Expected 6 full passes, got: %d", res.FullPasses)
	}
	if res.SegmentsPlayed != 24 {
		t.Errorf("Expected 24 segments played, got: %d", res.SegmentsPlayed)
	}
	if res.TokenErrors != 0 {
		t.Errorf("Expected 0 token errors, got: %d", res.TokenErrors)
	}
	if res.Status != stresstest.StatusCompleted {
		t.Errorf("Expected status completed, got: %s", res.Status)
	}
	stats := portal.Stats()
	if stats.Segments != 24 {
		t.Errorf("Expected 24 segment requests, got: %d", stats.Segments)
	}
	if stats.Logins != 1 {
		t.Errorf("Expected a single login, got: %d", stats.Logins)
	}
	if stats.KeepAlives < 1 || res.Heartbeats < 1 {
		t.Errorf("Expected at least one keep-alive, got %d (%d counted)", stats.KeepAlives, res.Heartbeats)
	}
	if stats.Rejected != 0 {
		t.Errorf("Expected no rejected requests, got: %d", stats.Rejected)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected banner and 5 summary lines, got %d:\n%s", len(lines), out.String())
	}
	if lines[0] != "Starting." {
		t.Errorf("Expected banner first, got %q", lines[0])
	}
	expected := []string{
		"Run finished.",
		"Media streams attempted: 6",
		"Media streams survived: 6",
		"Sections played back: 24",
		"Session Token retrieval errors: 0",
	}
	for i, want := range expected {
		if !strings.HasSuffix(lines[i+1], " "+want) {
			t.Errorf("Line %d: expected %q, got %q", i+1, want, lines[i+1])
		}
	}

	store, err := stresstest.NewManager(cfg.Database)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	defer store.Close()
	run, err := store.GetRunByRunID(res.RunID)
	if err != nil {
		t.Fatalf("GetRunByRunID() error: %v", err)
	}
	if run.Status != stresstest.StatusCompleted || run.FullPasses != 6 || run.SegmentsPlayed != 24 {
		t.Errorf("Unexpected stored run: %+v", run)
	}
}

func TestRun_AllLiveSessionsReachServer(t *testing.T) {
	portal := mock.NewServer(&mock.Config{Segments: 1})
	const batches, batchSize = 3, 2
	const sessions = int64(batches * batchSize)

	// Every start request is held until all sessions are in flight
	var active, peak int64
	allIn := make(chan struct{})
	var once sync.Once
	handler := portal.Handler()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/media/start" {
			current := atomic.AddInt64(&active, 1)
			defer atomic.AddInt64(&active, -1)
			for {
				old := atomic.LoadInt64(&peak)
				if current <= old || atomic.CompareAndSwapInt64(&peak, old, current) {
					break
				}
			}
			if current == sessions {
				once.Do(func() { close(allIn) })
			}
			select {
			case <-allIn:
			case <-time.After(3 * time.Second):
			}
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	run := runConfig(t, server)
	run.Batches = batches
	run.BatchSize = batchSize
	run.NoHistory = true

	var out bytes.Buffer
	res, err := Run(context.Background(), run, &out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := atomic.LoadInt64(&peak); got != sessions {
		t.Errorf("Expected %d concurrent start requests at the server, got: %d", sessions, got)
	}
	if res.FullPasses != sessions {
		t.Errorf("Expected %d full passes, got: %d", sessions, res.FullPasses)
	}
}

func TestLiveSessions(t *testing.T) {
	if got := liveSessions(&stresstest.Config{Batches: 10, BatchSize: 100}); got != 1000 {
		t.Errorf("Expected 1000 live sessions, got: %d", got)
	}
	if got := liveSessions(&stresstest.Config{Batches: 10, BatchSize: 100, MaxInFlight: 300}); got != 300 {
		t.Errorf("Expected 300 live sessions, got: %d", got)
	}
}

func TestRun_TokenErrors(t *testing.T) {
	_, server := newPortal(t, mock.Config{Segments: 4, FailTokenEvery: 2})
	cfg := runConfig(t, server)
	cfg.NoHistory = true

	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, &out)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.TokenErrors != 3 {
		t.Errorf("Expected 3 token errors, got: %d", res.TokenErrors)
	}
	if res.FullPasses != 3 {
		t.Errorf("Expected 3 full passes, got: %d", res.FullPasses)
	}
	if res.SegmentsPlayed != 12 {
		t.Errorf("Expected 12 segments played, got: %d", res.SegmentsPlayed)
	}
	if !strings.Contains(out.String(), "Session Token retrieval errors: 3") {
		t.Errorf("Expected token errors in summary, got:\n%s", out.String())
	}
}

func TestRun_LoginFailureStillReports(t *testing.T) {
	portal, server := newPortal(t, mock.Config{Username: "officer", Password: "other"})
	cfg := runConfig(t, server)

	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, &out)
	if err == nil {
		t.Fatal("Expected credential fault")
	}
	if !errors.Is(err, auth.ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got: %v", err)
	}

	if res == nil {
		t.Fatal("Expected results even when login fails")
	}
	if res.Status != stresstest.StatusFailed {
		t.Errorf("Expected status failed, got: %s", res.Status)
	}
	if res.Launched != 0 || res.FullPasses != 0 {
		t.Errorf("Expected no sessions, got launched=%d passes=%d", res.Launched, res.FullPasses)
	}
	if portal.Stats().Starts != 0 {
		t.Errorf("Expected no media requests, got: %d", portal.Stats().Starts)
	}

	text := out.String()
	for _, want := range []string{"Starting.", "Run finished.", "Media streams attempted: 6", "Media streams survived: 0"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got:\n%s", want, text)
		}
	}

	store, err := stresstest.NewManager(cfg.Database)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	defer store.Close()
	run, err := store.GetRunByRunID(res.RunID)
	if err != nil {
		t.Fatalf("GetRunByRunID() error: %v", err)
	}
	if run.Status != stresstest.StatusFailed || run.ErrorMessage == "" {
		t.Errorf("Expected failed run with error message, got: %+v", run)
	}
}

func TestRun_Cancelled(t *testing.T) {
	portal, server := newPortal(t, mock.Config{Segments: 4})
	cfg := runConfig(t, server)
	cfg.NoHistory = true
	cfg.RampUpSec = 3600

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for portal.Stats().Starts < 3 {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()

	var out bytes.Buffer
	done := make(chan struct{})
	var res *stresstest.Results
	var err error
	go func() {
		res, err = Run(ctx, cfg, &out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if err != nil {
		t.Fatalf("Expected cancellation to drain without error, got: %v", err)
	}
	if res.Status != stresstest.StatusCancelled {
		t.Errorf("Expected status cancelled, got: %s", res.Status)
	}
	if res.Launched != 3 {
		t.Errorf("Expected only the first batch launched, got: %d", res.Launched)
	}
	if res.Attempted != 6 {
		t.Errorf("Expected 6 attempted, got: %d", res.Attempted)
	}
	if !strings.Contains(out.String(), "Run finished.") {
		t.Errorf("Expected summary after cancellation, got:\n%s", out.String())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.NoHistory = true

	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, &out)
	if err == nil {
		t.Fatal("Expected error for missing credentials")
	}
	if res != nil {
		t.Errorf("Expected no results, got: %+v", res)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output, got: %s", out.String())
	}
}
