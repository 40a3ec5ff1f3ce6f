/*
Package stresstest provides the batch driver of the media load generator.

# Overview

The stresstest package implements:
  - Paced batch launching of simulated sessions
  - A drain barrier over every launched session
  - Lock-free result counters shared by all sessions
  - A background keep-alive heartbeat
  - SQLite persistence of run records

# Architecture

1. Scheduler (scheduler.go): batch launcher and drain barrier
2. Heartbeat (heartbeat.go): self-rescheduling background action
3. Counters (counter.go): AtomicCounter and the per-run Counters set
4. Results (stats.go): end-of-run aggregation
5. Manager (manager.go): run history database
6. Config (config.go): batch plan and run record

# Scheduler Design

For each batch the scheduler starts BatchSize goroutines at once, then
sleeps RampUp before the next batch. Sessions from different batches
overlap freely; the pause only governs launch cadence. After the last batch
the scheduler waits on an errgroup until every session has returned.

A panicking session is recovered and counted as a fault. It never stops
later launches or the drain.

MaxInFlight optionally bounds live sessions. Each batch first waits for
BatchSize free slots, then launches at once. The wait ends early when the
context is cancelled. MaxInFlight must be zero or at least
BatchSize so that a batch is still launched together.

# Heartbeat

The heartbeat runs its action immediately, then once per interval. Stop
prevents any further invocation and waits for one that is in progress.

# Example Usage

	counters := &stresstest.Counters{}
	plan := &stresstest.Config{Batches: 10, BatchSize: 100, RampUp: 10 * time.Second}

	sched, err := stresstest.NewScheduler(plan)
	if err != nil {
		return err
	}

	hb := stresstest.StartHeartbeat(ctx, 5*time.Minute, keepAlive)
	defer hb.Stop()

	err = sched.Run(ctx, func(seq int) stresstest.Session {
		return media.NewWorkflow(api, counters).Run
	})

	results := stresstest.Aggregate(plan, counters, sched)

# Thread Safety

Counters are only mutated through atomic operations. Configuration and
credentials are read-only once a run starts.

# Cancellation

Cancelling the context passed to Run stops further launches and cuts the
current pause short. Launched sessions are still awaited.
*/
package stresstest
