package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/studiowebux/streamload/internal/media"
	"github.com/studiowebux/streamload/internal/stresstest"
	"github.com/studiowebux/streamload/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755
)

// Defaults for a run
const (
	DefaultAgency     = "spurbury.qa.evidence.com"
	DefaultAgencyID   = "8e6b1253-e6f6-46f3-bd82-95eff899c1ec"
	DefaultEvidenceID = "20fddd49eeba48a2baf1bc8b677c7c72"
	DefaultFileID     = "d9bb44b00ec34482b67b3450927d1fc5"
	DefaultScheme     = "https"
	DefaultBatchSize  = 100
	DefaultBatches    = 10
	DefaultRampUpSec  = 10
	DefaultOutput     = "text"
)

var (
	// ConfigDir is the global configuration directory (~/.streamload)
	ConfigDir string

	// DatabasePath is the SQLite database file for run history
	DatabasePath string
)

// Initialize sets up the configuration directory.
// It creates ~/.streamload/ if it doesn't exist.
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	ConfigDir = filepath.Join(homeDir, ".streamload")
	DatabasePath = filepath.Join(ConfigDir, "streamload.db")

	if err := os.MkdirAll(ConfigDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ConfigDir, err)
	}

	return nil
}

// Run is the full configuration of one load test run. It can be loaded
// from a YAML file; command line flags override file values.
type Run struct {
	Agency     string `yaml:"agency"`
	AgencyID   string `yaml:"agency_id"`
	EvidenceID string `yaml:"evidence_id"`
	FileID     string `yaml:"file_id"`
	Scheme     string `yaml:"scheme"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`

	BatchSize   int  `yaml:"batchsize"`
	Batches     int  `yaml:"batches"`
	RampUpSec   int  `yaml:"rampup"`
	MaxInFlight int  `yaml:"max_inflight"`
	Verbose     bool `yaml:"verbose"`

	KeepAlive      time.Duration `yaml:"keepalive"`
	RequestTimeout time.Duration `yaml:"timeout"`
	StrictSegments bool          `yaml:"strict_segments"`

	TLS types.TLSConfig `yaml:"tls"`

	Output      string `yaml:"output"`
	MetricsAddr string `yaml:"metrics_addr"`
	NoHistory   bool   `yaml:"no_history"`
	Database    string `yaml:"database"`
}

// Default returns a run configuration with every default applied
func Default() *Run {
	return &Run{
		Agency:         DefaultAgency,
		AgencyID:       DefaultAgencyID,
		EvidenceID:     DefaultEvidenceID,
		FileID:         DefaultFileID,
		Scheme:         DefaultScheme,
		BatchSize:      DefaultBatchSize,
		Batches:        DefaultBatches,
		RampUpSec:      DefaultRampUpSec,
		KeepAlive:      stresstest.DefaultHeartbeatInterval,
		RequestTimeout: 30 * time.Second,
		Output:         DefaultOutput,
	}
}

// Load reads a YAML run file on top of the defaults
func Load(path string) (*Run, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate validates the run configuration
func (r *Run) Validate() error {
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	if r.Agency == "" {
		return fmt.Errorf("agency host is required")
	}
	if strings.Contains(r.Agency, "://") || strings.Contains(r.Agency, "/") {
		return fmt.Errorf("agency must be a host name, got %q", r.Agency)
	}
	if r.Scheme != "http" && r.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", r.Scheme)
	}
	if r.RampUpSec < 0 {
		return fmt.Errorf("ramp-up cannot be negative")
	}
	if r.KeepAlive <= 0 {
		return fmt.Errorf("keep-alive interval must be greater than 0")
	}
	switch r.Output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q (text/json/yaml)", r.Output)
	}
	return r.Plan().Validate()
}

// Plan returns the batch plan
func (r *Run) Plan() *stresstest.Config {
	return &stresstest.Config{
		Batches:     r.Batches,
		BatchSize:   r.BatchSize,
		RampUp:      r.RampUp(),
		MaxInFlight: r.MaxInFlight,
		Verbose:     r.Verbose,
	}
}

// RampUp returns the pause between batches as time.Duration
func (r *Run) RampUp() time.Duration {
	return time.Duration(r.RampUpSec) * time.Second
}

// Target returns the media target every session streams
func (r *Run) Target() media.Target {
	return media.Target{
		Scheme:     r.Scheme,
		Host:       r.Agency,
		PartnerID:  r.PartnerID(),
		EvidenceID: r.EvidenceID,
		FileID:     r.FileID,
	}
}

// PartnerID returns the agency id in the form the API expects
func (r *Run) PartnerID() string {
	return media.PartnerID(r.AgencyID)
}

// BaseURL returns scheme://agency
func (r *Run) BaseURL() string {
	return r.Target().BaseURL()
}

// TLSConfig returns the TLS options, nil when none are set
func (r *Run) TLSConfig() *types.TLSConfig {
	if r.TLS.IsZero() {
		return nil
	}
	tls := r.TLS
	return &tls
}

// DatabaseFile returns the history database path, or "" when history is off
func (r *Run) DatabaseFile() string {
	if r.NoHistory {
		return ""
	}
	if r.Database != "" {
		return r.Database
	}
	return DatabasePath
}
