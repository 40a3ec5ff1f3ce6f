package stresstest

import "time"

// Results is the end-of-run summary, taken after the scheduler drained
type Results struct {
	RunID          string    `json:"runId" yaml:"run_id"`
	Status         string    `json:"status" yaml:"status"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt      time.Time `json:"startedAt" yaml:"started_at"`
	FinishedAt     time.Time `json:"finishedAt" yaml:"finished_at"`
	Attempted      int64     `json:"attempted" yaml:"attempted"`
	Launched       int64     `json:"launched" yaml:"launched"`
	FullPasses     int64     `json:"fullPasses" yaml:"full_passes"`
	SegmentsPlayed int64     `json:"segmentsPlayed" yaml:"segments_played"`
	TokenErrors    int64     `json:"tokenErrors" yaml:"token_errors"`
	ManifestErrors int64     `json:"manifestErrors" yaml:"manifest_errors"`
	SegmentErrors  int64     `json:"segmentErrors" yaml:"segment_errors"`
	Faults         int64     `json:"faults" yaml:"faults"`
	Heartbeats     int64     `json:"heartbeats" yaml:"heartbeats"`
}

// Aggregate reads the final counter values. Attempted is the planned
// session count; Launched is what the scheduler actually started, which is
// lower when the run was cut short. sched may be nil if the run failed
// before scheduling.
func Aggregate(config *Config, counters *Counters, sched *Scheduler) Results {
	res := Results{
		Attempted:      int64(config.TotalSessions()),
		FullPasses:     counters.FullPasses.Value(),
		SegmentsPlayed: counters.SegmentsPlayed.Value(),
		TokenErrors:    counters.TokenErrors.Value(),
		ManifestErrors: counters.ManifestErrors.Value(),
		SegmentErrors:  counters.SegmentErrors.Value(),
		FinishedAt:     time.Now(),
	}
	if sched != nil {
		res.Launched = sched.Launched()
		res.Faults = sched.Faults()
	}
	return res
}

// Terminated returns how many sessions reached a terminal state
func (r Results) Terminated() int64 {
	return r.FullPasses + r.TokenErrors + r.ManifestErrors + r.Faults
}

// Duration returns the wall-clock length of the run
func (r Results) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SurvivalRate returns full passes as a percentage of attempted sessions
func (r Results) SurvivalRate() float64 {
	if r.Attempted == 0 {
		return 0
	}
	return float64(r.FullPasses) / float64(r.Attempted) * 100
}

// TokenErrorRate returns token errors as a percentage of launched sessions
func (r Results) TokenErrorRate() float64 {
	if r.Launched == 0 {
		return 0
	}
	return float64(r.TokenErrors) / float64(r.Launched) * 100
}

// SegmentsPerPass returns the average segments played per full pass
func (r Results) SegmentsPerPass() float64 {
	if r.FullPasses == 0 {
		return 0
	}
	return float64(r.SegmentsPlayed) / float64(r.FullPasses)
}
