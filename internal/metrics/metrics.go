// Package metrics exposes the live run counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/studiowebux/streamload/internal/stresstest"
)

const namespace = "streamload"

// Source is what the collectors read from. Scheduler and Heartbeat may be
// nil until they exist.
type Source struct {
	Counters  *stresstest.Counters
	Scheduler func() *stresstest.Scheduler
	Heartbeat func() *stresstest.Heartbeat
}

// NewRegistry builds a registry whose collectors read the counters on
// every scrape
func NewRegistry(src Source) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	counter := func(name, help string, c *stresstest.AtomicCounter) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(c.Value()) })
	}

	reg.MustRegister(
		counter("full_passes_total", "Sessions that completed the full playback workflow.", &src.Counters.FullPasses),
		counter("segments_played_total", "Media segments counted as played.", &src.Counters.SegmentsPlayed),
		counter("token_errors_total", "Sessions whose streaming token request failed.", &src.Counters.TokenErrors),
		counter("manifest_errors_total", "Sessions whose manifest request failed.", &src.Counters.ManifestErrors),
		counter("segment_errors_total", "Failed media segment downloads.", &src.Counters.SegmentErrors),
	)

	sched := func(read func(*stresstest.Scheduler) float64) func() float64 {
		return func() float64 {
			if src.Scheduler == nil {
				return 0
			}
			if s := src.Scheduler(); s != nil {
				return read(s)
			}
			return 0
		}
	}

	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_launched_total",
			Help:      "Simulated sessions started by the scheduler.",
		}, sched(func(s *stresstest.Scheduler) float64 { return float64(s.Launched()) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_faults_total",
			Help:      "Sessions that ended in a recovered panic.",
		}, sched(func(s *stresstest.Scheduler) float64 { return float64(s.Faults()) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently running.",
		}, sched(func(s *stresstest.Scheduler) float64 { return float64(s.ActiveSessions()) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keepalives_total",
			Help:      "Keep-alive pings sent.",
		}, func() float64 {
			if src.Heartbeat == nil {
				return 0
			}
			if h := src.Heartbeat(); h != nil {
				return float64(h.Count())
			}
			return 0
		}),
	)

	return reg
}

// Serve exposes reg on addr at /metrics until ctx is done
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
