package stresstest

import (
	"fmt"
	"time"
)

// Config is the batch plan of a run
type Config struct {
	Batches   int
	BatchSize int
	RampUp    time.Duration

	// MaxInFlight caps the number of live sessions. 0 means unbounded.
	// A non-zero cap must fit a whole batch.
	MaxInFlight int

	// Verbose logs the cumulative launched count after each batch
	Verbose bool
}

// Validate validates the batch plan
func (c *Config) Validate() error {
	if c.Batches <= 0 {
		return fmt.Errorf("batches must be greater than 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0")
	}
	if c.RampUp < 0 {
		return fmt.Errorf("ramp-up pause cannot be negative")
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("max in-flight cannot be negative")
	}
	if c.MaxInFlight > 0 && c.MaxInFlight < c.BatchSize {
		return fmt.Errorf("max in-flight (%d) must be 0 or at least the batch size (%d)", c.MaxInFlight, c.BatchSize)
	}
	return nil
}

// TotalSessions returns batches × batch size
func (c *Config) TotalSessions() int {
	return c.Batches * c.BatchSize
}

// EstimatedRampUp returns how long launching takes, ignoring session time
func (c *Config) EstimatedRampUp() time.Duration {
	return time.Duration(c.Batches) * c.RampUp
}

// Run status values
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Run represents a load test run record
type Run struct {
	ID             int64
	RunID          string
	Host           string
	EvidenceID     string
	FileID         string
	Batches        int
	BatchSize      int
	RampUpSec      int
	StartedAt      time.Time
	CompletedAt    *time.Time
	Status         string
	Attempted      int64
	Launched       int64
	FullPasses     int64
	SegmentsPlayed int64
	TokenErrors    int64
	ManifestErrors int64
	SegmentErrors  int64
	Faults         int64
	Heartbeats     int64
	ErrorMessage   string
}

// IsRunning returns true if the run is currently in progress
func (r *Run) IsRunning() bool {
	return r.Status == StatusRunning
}

// IsCompleted returns true if the run has finished
func (r *Run) IsCompleted() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled || r.Status == StatusFailed
}

// ApplyResults copies the final counters of a run into the record
func (r *Run) ApplyResults(res Results) {
	finished := res.FinishedAt
	r.CompletedAt = &finished
	r.Status = res.Status
	r.Attempted = res.Attempted
	r.Launched = res.Launched
	r.FullPasses = res.FullPasses
	r.SegmentsPlayed = res.SegmentsPlayed
	r.TokenErrors = res.TokenErrors
	r.ManifestErrors = res.ManifestErrors
	r.SegmentErrors = res.SegmentErrors
	r.Faults = res.Faults
	r.Heartbeats = res.Heartbeats
	r.ErrorMessage = res.Error
}
