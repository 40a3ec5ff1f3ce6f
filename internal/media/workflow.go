package media

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/studiowebux/streamload/internal/stresstest"
)

// State is a session's position in the streaming workflow
type State int

const (
	StateInit State = iota
	StateTokenRequested
	StateTokenFailed
	StateManifestFetching
	StateManifestFailed
	StateSegmentsDownloading
	StateCompleted
)

var stateNames = map[State]string{
	StateInit:                "init",
	StateTokenRequested:      "token-requested",
	StateTokenFailed:         "token-failed",
	StateManifestFetching:    "manifest-fetching",
	StateManifestFailed:      "manifest-failed",
	StateSegmentsDownloading: "segments-downloading",
	StateCompleted:           "completed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the workflow stops in this state
func (s State) Terminal() bool {
	return s == StateTokenFailed || s == StateManifestFailed || s == StateCompleted
}

// WorkflowOptions tunes one simulated session
type WorkflowOptions struct {
	// Seq is the session's launch sequence number, used in logs
	Seq int

	// StrictSegments counts a segment as played only when it was fetched
	// successfully. By default every attempted fetch counts.
	StrictSegments bool
}

// Workflow is one simulated client: start session, fetch manifest,
// download every segment. Failures are recorded in the shared counters and
// never returned.
type Workflow struct {
	api      StreamAPI
	counters *stresstest.Counters
	opts     WorkflowOptions
	id       string
	state    State
}

// NewWorkflow creates a session workflow
func NewWorkflow(api StreamAPI, counters *stresstest.Counters, opts WorkflowOptions) *Workflow {
	return &Workflow{
		api:      api,
		counters: counters,
		opts:     opts,
		id:       uuid.NewString(),
		state:    StateInit,
	}
}

// Run executes the workflow. Its signature matches stresstest.Session.
func (w *Workflow) Run(ctx context.Context) {
	w.Execute(ctx)
}

// Execute runs the workflow and returns the terminal state
func (w *Workflow) Execute(ctx context.Context) State {
	logger := log.With().Str("session", w.id).Int("seq", w.opts.Seq).Logger()

	w.state = StateTokenRequested
	token, err := w.api.StartSession(ctx)
	if err != nil {
		w.state = StateTokenFailed
		w.counters.TokenErrors.Inc()
		logger.Debug().Err(err).Msg("Session token retrieval failed")
		return w.state
	}

	w.state = StateManifestFetching
	segments, err := w.api.Manifest(ctx, token)
	if err != nil {
		w.state = StateManifestFailed
		w.counters.ManifestErrors.Inc()
		logger.Debug().Err(err).Msg("Manifest fetch failed")
		return w.state
	}

	w.state = StateSegmentsDownloading
	for _, segmentURL := range segments {
		err := w.api.FetchSegment(ctx, segmentURL)
		if err != nil {
			w.counters.SegmentErrors.Inc()
			logger.Debug().Err(err).Str("url", segmentURL).Msg("Segment fetch failed")
			if w.opts.StrictSegments {
				continue
			}
		}
		w.counters.SegmentsPlayed.Inc()
	}

	w.state = StateCompleted
	w.counters.FullPasses.Inc()
	logger.Debug().Int("segments", len(segments)).Msg("Playback complete")
	return w.state
}

// State returns the current workflow state. Only meaningful once Run has
// returned, or from the goroutine running it.
func (w *Workflow) State() State {
	return w.state
}
