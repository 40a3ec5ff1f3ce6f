package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/studiowebux/streamload/internal/cli"
	"github.com/studiowebux/streamload/internal/config"
	"github.com/studiowebux/streamload/internal/logging"
	"github.com/studiowebux/streamload/internal/mock"
)

var (
	version = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "streamload",
	Short: "Streaming media load generator",
	Long: `streamload logs into an agency portal once, then plays the same piece of
evidence from many simulated clients at the same time.

Clients are started in batches with a pause between batches. Every client
requests a streaming session token, fetches the HLS variant manifest and
downloads every media segment in it. A keep-alive request holds the login
session open for the whole run. A summary is printed when every client is done.

Interrupting the run (Ctrl+C) stops launching new batches; clients already
running are awaited and the summary is still printed.

Examples:
  streamload -u officer -p secret                          # 10 batches of 100 clients
  streamload -u officer -p secret --batches 2 --batchsize 5 --rampup 0
  streamload --config run.yaml --metrics-addr :9100        # Options from file, expose metrics
  streamload history                                       # List recent runs
  streamload mock --port 8080                              # Local fake portal`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		cfg, err := loadRunConfig(cmd)
		if err != nil {
			return err
		}

		logging.Init(cfg.Verbose)

		if cfg.Username != "" && cfg.Password == "" && cli.IsInteractive() {
			password, err := cli.Prompt(os.Stdin, os.Stderr, "password")
			if err != nil {
				return err
			}
			cfg.Password = password
		}

		_, err = cli.Run(cmd.Context(), cfg, cmd.OutOrStdout())
		return err
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent load test runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		logging.Init(false)

		dbPath := config.DatabasePath
		if flagDatabase != "" {
			dbPath = flagDatabase
		}
		if flagHistoryDelete != "" {
			if err := cli.DeleteHistory(dbPath, flagHistoryDelete); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Deleted run %s\n", flagHistoryDelete)
			return nil
		}
		return cli.History(dbPath, flagHistoryLimit, flagOutput, cmd.OutOrStdout())
	},
}

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve a fake agency portal for rehearsing runs",
	Long: `Serve a fake agency portal and media API on the local machine.

Point a run at it with --scheme http --agency <host:port>. Stop it with Ctrl+C;
request counts are printed on exit.

Examples:
  streamload mock --port 8080 --segments 10 --delay 50
  streamload -u a -p b --scheme http --agency localhost:8080 --batches 2 --batchsize 5 --rampup 1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(false)

		portalConfig := &mock.Config{}
		if flagMockConfig != "" {
			loaded, err := mock.LoadConfig(flagMockConfig)
			if err != nil {
				return err
			}
			portalConfig = loaded
		}

		flags := cmd.Flags()
		if flags.Changed("host") {
			portalConfig.Host = flagMockHost
		}
		if flags.Changed("port") {
			portalConfig.Port = flagMockPort
		}
		if flags.Changed("segments") {
			portalConfig.Segments = flagMockSegments
		}
		if flags.Changed("delay") {
			portalConfig.Delay = flagMockDelay
		}
		if flags.Changed("fail-token-every") {
			portalConfig.FailTokenEvery = flagMockFailEvery
		}

		srv := mock.NewServer(portalConfig)
		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Mock portal listening on %s\n", srv.GetAddress())

		<-cmd.Context().Done()
		if err := srv.Stop(); err != nil {
			return fmt.Errorf("failed to stop mock portal: %w", err)
		}

		stats := srv.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "logins=%d keepalives=%d starts=%d manifests=%d segments=%d rejected=%d\n",
			stats.Logins, stats.KeepAlives, stats.Starts, stats.Manifests, stats.Segments, stats.Rejected)
		return nil
	},
}

// Flags for the root command
var (
	flagConfigFile     string
	flagAgency         string
	flagAgencyID       string
	flagEvidenceID     string
	flagFileID         string
	flagScheme         string
	flagUsername       string
	flagPassword       string
	flagBatchSize      int
	flagBatches        int
	flagRampUp         int
	flagMaxInFlight    int
	flagVerbose        bool
	flagKeepAlive      time.Duration
	flagTimeout        time.Duration
	flagStrictSegments bool
	flagInsecure       bool
	flagCAFile         string
	flagOutput         string
	flagMetricsAddr    string
	flagNoHistory      bool
	flagDatabase       string
)

// Flags for history
var (
	flagHistoryLimit  int
	flagHistoryDelete string
)

// Flags for mock
var (
	flagMockConfig    string
	flagMockHost      string
	flagMockPort      int
	flagMockSegments  int
	flagMockDelay     int
	flagMockFailEvery int
)

func init() {
	defaults := config.Default()

	f := rootCmd.Flags()
	f.StringVar(&flagConfigFile, "config", "", "Load run options from a YAML file (flags override it)")
	f.StringVar(&flagAgency, "agency", defaults.Agency, "Agency host name")
	f.StringVar(&flagAgencyID, "agency-id", defaults.AgencyID, "Agency id (uuid)")
	f.StringVar(&flagEvidenceID, "evidence-id", defaults.EvidenceID, "Evidence id to stream")
	f.StringVar(&flagFileID, "file-id", defaults.FileID, "File id to stream")
	f.StringVar(&flagScheme, "scheme", defaults.Scheme, "URL scheme (http/https)")
	f.StringVarP(&flagUsername, "username", "u", "", "Portal username (required)")
	f.StringVarP(&flagPassword, "password", "p", "", "Portal password (required)")
	f.IntVar(&flagBatchSize, "batchsize", defaults.BatchSize, "Clients started per batch")
	f.IntVar(&flagBatches, "batches", defaults.Batches, "Number of batches")
	f.IntVar(&flagRampUp, "rampup", defaults.RampUpSec, "Pause between batches in seconds")
	f.IntVar(&flagMaxInFlight, "max-inflight", 0, "Cap on concurrently running clients (0 = no cap, otherwise >= batchsize)")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Log batch progress and per-client detail")
	f.DurationVar(&flagKeepAlive, "keepalive", defaults.KeepAlive, "Keep-alive interval")
	f.DurationVar(&flagTimeout, "timeout", defaults.RequestTimeout, "Per-request timeout")
	f.BoolVar(&flagStrictSegments, "strict-segments", false, "Count only successfully downloaded segments as played")
	f.BoolVarP(&flagInsecure, "insecure", "k", false, "Skip TLS certificate verification")
	f.StringVar(&flagCAFile, "ca-file", "", "CA certificate bundle for the agency host")
	f.StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	f.BoolVar(&flagNoHistory, "no-history", false, "Do not record the run in the history database")

	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", defaults.Output, "Output format (text/json/yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "db", "", "History database path (default ~/.streamload/streamload.db)")

	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", cli.DefaultHistoryLimit, "Number of runs to list")
	historyCmd.Flags().StringVar(&flagHistoryDelete, "delete", "", "Delete the run with this run id")

	mockCmd.Flags().StringVar(&flagMockConfig, "portal-config", "", "Load portal settings from a YAML or JSON file")
	mockCmd.Flags().StringVar(&flagMockHost, "host", "localhost", "Listen host")
	mockCmd.Flags().IntVar(&flagMockPort, "port", mock.DefaultPort, "Listen port")
	mockCmd.Flags().IntVar(&flagMockSegments, "segments", mock.DefaultSegments, "Segments per manifest")
	mockCmd.Flags().IntVar(&flagMockDelay, "delay", 0, "Response delay in milliseconds")
	mockCmd.Flags().IntVar(&flagMockFailEvery, "fail-token-every", 0, "Fail every Nth token request (0: never)")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mockCmd)
}

// loadRunConfig builds the run configuration from the optional config file
// and the flags that were set explicitly
func loadRunConfig(cmd *cobra.Command) (*config.Run, error) {
	cfg := config.Default()
	if flagConfigFile != "" {
		loaded, err := config.Load(flagConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}

	set("agency", func() { cfg.Agency = flagAgency })
	set("agency-id", func() { cfg.AgencyID = flagAgencyID })
	set("evidence-id", func() { cfg.EvidenceID = flagEvidenceID })
	set("file-id", func() { cfg.FileID = flagFileID })
	set("scheme", func() { cfg.Scheme = flagScheme })
	set("username", func() { cfg.Username = flagUsername })
	set("password", func() { cfg.Password = flagPassword })
	set("batchsize", func() { cfg.BatchSize = flagBatchSize })
	set("batches", func() { cfg.Batches = flagBatches })
	set("rampup", func() { cfg.RampUpSec = flagRampUp })
	set("max-inflight", func() { cfg.MaxInFlight = flagMaxInFlight })
	set("verbose", func() { cfg.Verbose = flagVerbose })
	set("keepalive", func() { cfg.KeepAlive = flagKeepAlive })
	set("timeout", func() { cfg.RequestTimeout = flagTimeout })
	set("strict-segments", func() { cfg.StrictSegments = flagStrictSegments })
	set("insecure", func() { cfg.TLS.InsecureSkipVerify = flagInsecure })
	set("ca-file", func() { cfg.TLS.CAFile = flagCAFile })
	set("output", func() { cfg.Output = flagOutput })
	set("metrics-addr", func() { cfg.MetricsAddr = flagMetricsAddr })
	set("no-history", func() { cfg.NoHistory = flagNoHistory })
	set("db", func() { cfg.Database = flagDatabase })

	return cfg, nil
}
