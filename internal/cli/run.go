package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/studiowebux/streamload/internal/auth"
	"github.com/studiowebux/streamload/internal/config"
	"github.com/studiowebux/streamload/internal/executor"
	"github.com/studiowebux/streamload/internal/media"
	"github.com/studiowebux/streamload/internal/metrics"
	"github.com/studiowebux/streamload/internal/stresstest"
)

// Run executes one load test run and writes the summary to w. The summary
// is written on every path, including a failed login or an interrupted run.
// A cancelled ctx drains the sessions already started and is not an error.
func Run(ctx context.Context, cfg *config.Run, w io.Writer) (res *stresstest.Results, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	plan := cfg.Plan()

	client, err := executor.NewClient(executor.ClientOptions{
		IdleConns: liveSessions(plan),
		Timeout:   cfg.RequestTimeout,
		TLS:       cfg.TLSConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	counters := &stresstest.Counters{}
	runID := uuid.NewString()
	startedAt := time.Now()

	writeBanner(w)
	log.Info().
		Str("run_id", runID).
		Str("host", cfg.Agency).
		Int("sessions", plan.TotalSessions()).
		Str("ramp_up", plan.EstimatedRampUp().String()).
		Msg("run planned")

	history := openHistory(cfg, runID, startedAt)

	authn := auth.NewAuthenticator(client, cfg.BaseURL())
	var cred atomic.Pointer[auth.Credential]
	var sched atomic.Pointer[stresstest.Scheduler]

	heartbeat := stresstest.StartHeartbeat(ctx, cfg.KeepAlive, func(ctx context.Context) {
		log.Info().Str("url", authn.KeepAliveURL()).Msg("Sending keepAlive request.")
		if err := authn.KeepAlive(ctx, cred.Load()); err != nil {
			log.Debug().Err(err).Msg("keep-alive failed")
		}
	})

	if cfg.MetricsAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(context.Background())
		defer stopMetrics()
		reg := metrics.NewRegistry(metrics.Source{
			Counters:  counters,
			Scheduler: sched.Load,
			Heartbeat: func() *stresstest.Heartbeat { return heartbeat },
		})
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr, reg); err != nil {
				log.Warn().Err(err).Msg("metrics endpoint stopped")
			}
		}()
	}

	defer func() {
		heartbeat.Stop()

		results := stresstest.Aggregate(plan, counters, sched.Load())
		results.RunID = runID
		results.StartedAt = startedAt
		results.Heartbeats = heartbeat.Count()
		results.Status = runStatus(ctx, err)
		if err != nil {
			results.Error = err.Error()
		}

		if werr := WriteReport(w, results, cfg.Output); werr != nil && err == nil {
			err = fmt.Errorf("failed to write report: %w", werr)
		}
		history.finish(results)
		logStatistics(results)
		res = &results
	}()

	c, err := authn.Login(ctx, cfg.Username, cfg.Password, cfg.PartnerID())
	if err != nil {
		return nil, fmt.Errorf("credential fault: %w", err)
	}
	cred.Store(c)
	log.Debug().Str("run_id", runID).Msg("logged in")

	s, err := stresstest.NewScheduler(plan)
	if err != nil {
		return nil, err
	}
	sched.Store(s)

	api := media.NewClient(client, cfg.Target(), c)
	runErr := s.Run(ctx, func(seq int) stresstest.Session {
		return media.NewWorkflow(api, counters, media.WorkflowOptions{
			Seq:            seq,
			StrictSegments: cfg.StrictSegments,
		}).Run
	})
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return nil, runErr
	}

	return nil, nil
}

// liveSessions is the most sessions that can run at the same time
func liveSessions(plan *stresstest.Config) int {
	if plan.MaxInFlight > 0 {
		return plan.MaxInFlight
	}
	return plan.TotalSessions()
}

func runStatus(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil:
		return stresstest.StatusCancelled
	case err != nil:
		return stresstest.StatusFailed
	default:
		return stresstest.StatusCompleted
	}
}

func logStatistics(res stresstest.Results) {
	log.Debug().
		Str("duration", executor.FormatDuration(res.Duration().Milliseconds())).
		Int64("launched", res.Launched).
		Int64("terminated", res.Terminated()).
		Int64("manifest_errors", res.ManifestErrors).
		Int64("segment_errors", res.SegmentErrors).
		Int64("faults", res.Faults).
		Float64("survival_pct", res.SurvivalRate()).
		Float64("token_error_pct", res.TokenErrorRate()).
		Float64("segments_per_pass", res.SegmentsPerPass()).
		Msg("run statistics")
}

func writeBanner(w io.Writer) {
	style := lipgloss.NewRenderer(w).NewStyle().Bold(true)
	fmt.Fprintln(w, style.Render("Starting."))
}

// runHistory records a run in the history database. A nil store means
// history is disabled or unavailable; the run goes on without it.
type runHistory struct {
	store  *stresstest.Manager
	record *stresstest.Run
}

func openHistory(cfg *config.Run, runID string, startedAt time.Time) *runHistory {
	h := &runHistory{}
	path := cfg.DatabaseFile()
	if path == "" {
		return h
	}

	store, err := stresstest.NewManager(path)
	if err != nil {
		log.Warn().Err(err).Str("db", path).Msg("run history disabled")
		return h
	}

	record := &stresstest.Run{
		RunID:      runID,
		Host:       cfg.Agency,
		EvidenceID: cfg.EvidenceID,
		FileID:     cfg.FileID,
		Batches:    cfg.Batches,
		BatchSize:  cfg.BatchSize,
		RampUpSec:  cfg.RampUpSec,
		StartedAt:  startedAt,
		Status:     stresstest.StatusRunning,
		Attempted:  int64(cfg.Plan().TotalSessions()),
	}
	if err := store.CreateRun(record); err != nil {
		log.Warn().Err(err).Msg("run history disabled")
		store.Close()
		return h
	}

	h.store = store
	h.record = record
	return h
}

func (h *runHistory) finish(results stresstest.Results) {
	if h.store == nil {
		return
	}
	defer h.store.Close()

	h.record.ApplyResults(results)
	if err := h.store.UpdateRun(h.record); err != nil {
		log.Warn().Err(err).Str("run_id", h.record.RunID).Msg("failed to save run")
	}
}
