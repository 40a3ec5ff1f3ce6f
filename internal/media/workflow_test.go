package media

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/studiowebux/streamload/internal/stresstest"
)

// mockAPI is a scripted StreamAPI
type mockAPI struct {
	tokenErr     error
	manifestErr  error
	segments     int
	failSegments map[int]bool
}

func (m *mockAPI) StartSession(ctx context.Context) (string, error) {
	if m.tokenErr != nil {
		return "", m.tokenErr
	}
	return "token", nil
}

func (m *mockAPI) Manifest(ctx context.Context, token string) ([]string, error) {
	if m.manifestErr != nil {
		return nil, m.manifestErr
	}
	urls := make([]string, m.segments)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://h/api/seg/%d", i)
	}
	return urls, nil
}

func (m *mockAPI) FetchSegment(ctx context.Context, segmentURL string) error {
	var n int
	fmt.Sscanf(segmentURL, "https://h/api/seg/%d", &n)
	if m.failSegments[n] {
		return errors.New("segment unavailable")
	}
	return nil
}

func newCounters() *stresstest.Counters {
	return &stresstest.Counters{}
}

func runScenario(t *testing.T, batches, batchSize int, apiFor func(seq int) StreamAPI) *stresstest.Counters {
	t.Helper()
	counters := newCounters()
	sched, err := stresstest.NewScheduler(&stresstest.Config{Batches: batches, BatchSize: batchSize})
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	err = sched.Run(context.Background(), func(seq int) stresstest.Session {
		return NewWorkflow(apiFor(seq), counters, WorkflowOptions{Seq: seq}).Run
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return counters
}

func TestScenario_AllSessionsSucceed(t *testing.T) {
	counters := runScenario(t, 2, 3, func(int) StreamAPI {
		return &mockAPI{segments: 4}
	})

	if got := counters.FullPasses.Value(); got != 6 {
		t.Errorf("Expected 6 full passes, got %d", got)
	}
	if got := counters.SegmentsPlayed.Value(); got != 24 {
		t.Errorf("Expected 24 segments played, got %d", got)
	}
	if got := counters.TokenErrors.Value(); got != 0 {
		t.Errorf("Expected 0 token errors, got %d", got)
	}
}

func TestScenario_TokenFailuresForSomeSessions(t *testing.T) {
	counters := runScenario(t, 2, 3, func(seq int) StreamAPI {
		api := &mockAPI{segments: 4}
		if seq == 1 || seq == 4 {
			api.tokenErr = errors.New("cannot extract streamingSessionToken")
		}
		return api
	})

	if got := counters.TokenErrors.Value(); got != 2 {
		t.Errorf("Expected 2 token errors, got %d", got)
	}
	if got := counters.FullPasses.Value(); got != 4 {
		t.Errorf("Expected 4 full passes, got %d", got)
	}
	if got := counters.SegmentsPlayed.Value(); got != 16 {
		t.Errorf("Expected 16 segments played, got %d", got)
	}
	if sum := counters.FullPasses.Value() + counters.TokenErrors.Value(); sum != 6 {
		t.Errorf("Expected every session to terminate, got %d", sum)
	}
}

func TestWorkflow_States(t *testing.T) {
	tests := []struct {
		name         string
		api          *mockAPI
		strict       bool
		wantState    State
		wantPlayed   int64
		wantPasses   int64
		wantTokenErr int64
		wantManErr   int64
		wantSegErr   int64
	}{
		{
			name:      "completed",
			api:       &mockAPI{segments: 3},
			wantState: StateCompleted, wantPlayed: 3, wantPasses: 1,
		},
		{
			name:      "empty manifest still completes",
			api:       &mockAPI{segments: 0},
			wantState: StateCompleted, wantPasses: 1,
		},
		{
			name:      "token failure",
			api:       &mockAPI{segments: 3, tokenErr: errors.New("no token")},
			wantState: StateTokenFailed, wantTokenErr: 1,
		},
		{
			name:      "manifest failure",
			api:       &mockAPI{segments: 3, manifestErr: errors.New("reset")},
			wantState: StateManifestFailed, wantManErr: 1,
		},
		{
			// Failed fetches still count as played by default
			name:      "optimistic segment counting",
			api:       &mockAPI{segments: 4, failSegments: map[int]bool{1: true, 2: true}},
			wantState: StateCompleted, wantPlayed: 4, wantPasses: 1, wantSegErr: 2,
		},
		{
			name:      "strict segment counting",
			api:       &mockAPI{segments: 4, failSegments: map[int]bool{1: true, 2: true}},
			strict:    true,
			wantState: StateCompleted, wantPlayed: 2, wantPasses: 1, wantSegErr: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counters := newCounters()
			w := NewWorkflow(tt.api, counters, WorkflowOptions{StrictSegments: tt.strict})
			if w.State() != StateInit {
				t.Errorf("Expected init state before run, got %s", w.State())
			}

			state := w.Execute(context.Background())

			if state != tt.wantState || w.State() != tt.wantState {
				t.Errorf("Expected state %s, got %s", tt.wantState, state)
			}
			if !state.Terminal() {
				t.Errorf("Expected terminal state, got %s", state)
			}
			if got := counters.SegmentsPlayed.Value(); got != tt.wantPlayed {
				t.Errorf("SegmentsPlayed = %d, want %d", got, tt.wantPlayed)
			}
			if got := counters.FullPasses.Value(); got != tt.wantPasses {
				t.Errorf("FullPasses = %d, want %d", got, tt.wantPasses)
			}
			if got := counters.TokenErrors.Value(); got != tt.wantTokenErr {
				t.Errorf("TokenErrors = %d, want %d", got, tt.wantTokenErr)
			}
			if got := counters.ManifestErrors.Value(); got != tt.wantManErr {
				t.Errorf("ManifestErrors = %d, want %d", got, tt.wantManErr)
			}
			if got := counters.SegmentErrors.Value(); got != tt.wantSegErr {
				t.Errorf("SegmentErrors = %d, want %d", got, tt.wantSegErr)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if StateTokenFailed.String() != "token-failed" {
		t.Errorf("Unexpected name %q", StateTokenFailed.String())
	}
	if State(99).String() != "unknown" {
		t.Errorf("Expected unknown for invalid state")
	}
	if StateSegmentsDownloading.Terminal() {
		t.Error("segments-downloading is not terminal")
	}
}
