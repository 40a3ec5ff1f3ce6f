package stresstest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Session is one simulated client. It must honour ctx cancellation on its
// blocking calls.
type Session func(ctx context.Context)

// SessionFactory builds the session with the given sequence number
type SessionFactory func(seq int) Session

// Scheduler launches sessions in paced batches and waits for all of them
type Scheduler struct {
	config         *Config
	launched       AtomicCounter
	faults         AtomicCounter
	activeSessions int32 // Atomic gauge of running sessions
}

// NewScheduler creates a scheduler for the given batch plan
func NewScheduler(config *Config) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Scheduler{config: config}, nil
}

// Run launches Batches × BatchSize sessions, pausing RampUp after every
// batch, then blocks until every launched session has returned.
//
// With MaxInFlight set, a batch waits until BatchSize slots are free and
// then launches all at once.
//
// Cancelling ctx stops further launches and cuts the current pause or slot
// wait short. Sessions already launched are still awaited. The returned
// error is the context error when launching was cut short, nil otherwise.
func (s *Scheduler) Run(ctx context.Context, factory SessionFactory) error {
	// Plain group: one failing session must not cancel its siblings
	var g errgroup.Group
	var slots *semaphore.Weighted
	if s.config.MaxInFlight > 0 {
		slots = semaphore.NewWeighted(int64(s.config.MaxInFlight))
	}

	var runErr error
	seq := 0
	for batch := 0; batch < s.config.Batches; batch++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if slots != nil {
			if err := slots.Acquire(ctx, int64(s.config.BatchSize)); err != nil {
				runErr = err
				break
			}
		}

		for i := 0; i < s.config.BatchSize; i++ {
			s.launch(ctx, &g, seq, factory, slots)
			seq++
		}

		if s.config.Verbose {
			log.Info().
				Int("batch", batch+1).
				Int64("launched", s.launched.Value()).
				Msgf("%d streams kicked off.", s.launched.Value())
		}

		if err := pause(ctx, s.config.RampUp); err != nil {
			runErr = err
			break
		}
	}

	if runErr != nil {
		log.Warn().Err(runErr).Int64("launched", s.launched.Value()).Msg("Launching stopped. Waiting for running playbacks to complete.")
	} else {
		log.Info().Msg("All streams kicked off. Waiting for playbacks to complete.")
	}

	// Sessions never return errors; Wait is the drain barrier
	_ = g.Wait()

	return runErr
}

// launch starts one session. slots, when set, already holds one unit for
// it; the unit is released when the session returns.
func (s *Scheduler) launch(ctx context.Context, g *errgroup.Group, seq int, factory SessionFactory, slots *semaphore.Weighted) {
	s.launched.Inc()
	g.Go(func() error {
		if slots != nil {
			defer slots.Release(1)
		}
		atomic.AddInt32(&s.activeSessions, 1)
		defer atomic.AddInt32(&s.activeSessions, -1)
		defer s.recoverFault(seq)

		session := factory(seq)
		if session != nil {
			session(ctx)
		}
		return nil
	})
}

// recoverFault contains a panicking session so the run continues
func (s *Scheduler) recoverFault(seq int) {
	if r := recover(); r != nil {
		s.faults.Inc()
		log.Error().Int("session", seq).Interface("panic", r).Msg("Session aborted by fault")
	}
}

// Launched returns how many sessions have been started
func (s *Scheduler) Launched() int64 {
	return s.launched.Value()
}

// Faults returns how many sessions panicked
func (s *Scheduler) Faults() int64 {
	return s.faults.Value()
}

// ActiveSessions returns how many sessions are currently running
func (s *Scheduler) ActiveSessions() int {
	return int(atomic.LoadInt32(&s.activeSessions))
}

// pause blocks for d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
