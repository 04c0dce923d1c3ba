// Command eventflow-scan analyzes a publish/subscribe codebase and
// pushes event-flow graphs to the graph API, either once or on an
// interval.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/dot"
	"github.com/randalmurphal/eventflow/pkg/eventflow/history"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
	"github.com/randalmurphal/eventflow/pkg/eventflow/scanner"
)

const version = "0.1.0"

// exitInterrupted mirrors the conventional 128+SIGINT exit code.
const exitInterrupted = 130

type scanFlags struct {
	configPath string
	agentsDir  string
	eventsDir  string
	apiURL     string
	interval   time.Duration
	oneShot    bool
	historyDB  string
	selfLoops  bool
	debug      bool
}

func main() {
	code := run()
	os.Exit(code)
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			return exitInterrupted
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "eventflow-scan",
		Short: "Scan a codebase and push event-flow graphs to the graph API",
		Long: `eventflow-scan extracts publish/subscribe declarations from source,
builds the event-flow model, detects anomalies (orphaned events, cycles,
isolated agents), and pushes rendered graphs to the graph API.`,
		Example: `  # Using a config file (recommended, includes colors and styling)
  eventflow-scan --config event_flow_config.yaml --one-shot

  # Continuous scan with config (every 60 seconds)
  eventflow-scan --config event_flow_config.yaml --interval 60s

  # Manual mode, one-shot scan
  eventflow-scan --agents-dir ./agents --api-url http://localhost:5555 --one-shot

  # Manual mode, with events directory for namespace info
  eventflow-scan --agents-dir ./agents --events-dir ./events --one-shot`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to configuration file (searched upward from its directory)")
	cmd.Flags().StringVar(&flags.agentsDir, "agents-dir", "", "path to agents directory (required without --config)")
	cmd.Flags().StringVar(&flags.eventsDir, "events-dir", "", "path to events directory (optional, for namespace info)")
	cmd.Flags().StringVar(&flags.apiURL, "api-url", config.DefaultAPIURL, "base URL of the graph API")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "scan interval (omit for one-shot mode)")
	cmd.Flags().BoolVar(&flags.oneShot, "one-shot", false, "run once and exit (overrides --interval)")
	cmd.Flags().StringVar(&flags.historyDB, "history", "", "SQLite file recording scan runs")
	cmd.Flags().BoolVar(&flags.selfLoops, "self-loops", false, "report single-agent feedback loops as cycles")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	return cmd
}

func runScan(ctx context.Context, flags *scanFlags) error {
	logger := newLogger(flags.debug)
	slog.SetDefault(logger)

	cfg, err := resolveConfig(flags)
	if err != nil {
		return err
	}

	continuous := cfg.Interval > 0 && !flags.oneShot
	if !continuous {
		cfg.Interval = 0
	}

	generators := registry.New[dot.Factory]()
	generators.Register(dot.TypeComplete, dot.NewComplete)
	generators.Register(dot.TypeFullTree, dot.NewTree)

	opts := []scanner.Option{
		scanner.WithLogger(logger),
		scanner.WithMetrics(observability.NewMetricsRecorder()),
		scanner.WithSelfLoops(flags.selfLoops),
	}
	if cfg.HistoryPath != "" {
		store, storeErr := history.NewSQLiteStore(cfg.HistoryPath)
		if storeErr != nil {
			return fmt.Errorf("opening history store: %w", storeErr)
		}
		defer store.Close()
		opts = append(opts, scanner.WithHistory(store))
	}

	s := scanner.New(cfg, generators, opts...)

	if continuous {
		if err := s.Run(ctx); err != nil {
			return err
		}
		return nil
	}

	result, err := s.Scan(ctx)
	if err != nil {
		return err
	}

	pushed := 0
	for _, ok := range result.Pushed {
		if ok {
			pushed++
		}
	}
	fmt.Printf("Summary: %d/%d graphs pushed successfully\n", pushed, len(result.Pushed))
	if !result.AllPushed() {
		return fmt.Errorf("some graphs failed to push")
	}
	return nil
}

// resolveConfig builds the scanner configuration from a config file
// when one is given (or found by upward search), or from the manual
// flags otherwise. Flags set explicitly override config file values.
func resolveConfig(flags *scanFlags) (config.Scanner, error) {
	if flags.configPath == "" && flags.agentsDir == "" {
		// Neither given: try the default upward search before failing.
		cwd, err := os.Getwd()
		if err != nil {
			return config.Scanner{}, err
		}
		found, err := config.Find(cwd, config.DefaultFilename)
		if err != nil {
			return config.Scanner{}, fmt.Errorf("--agents-dir is required when no config file is found: %w", err)
		}
		flags.configPath = found
	}

	var cfg config.Scanner
	if flags.configPath != "" {
		path, err := findConfig(flags.configPath)
		if err != nil {
			return config.Scanner{}, err
		}
		raw, err := config.FromFile(path)
		if err != nil {
			return config.Scanner{}, err
		}
		cfg, err = config.ScannerFromConfig(raw, filepath.Dir(path))
		if err != nil {
			return config.Scanner{}, err
		}
	} else {
		agentsDir, err := filepath.Abs(flags.agentsDir)
		if err != nil {
			return config.Scanner{}, err
		}
		if info, statErr := os.Stat(agentsDir); statErr != nil || !info.IsDir() {
			return config.Scanner{}, fmt.Errorf("agents directory not found: %s", agentsDir)
		}
		cfg = config.Scanner{
			AgentsDir:  agentsDir,
			APIURL:     flags.apiURL,
			GraphTypes: config.DefaultGraphTypes,
			FontName:   config.DefaultFontName,
		}
		if flags.eventsDir != "" {
			if cfg.EventsDir, err = filepath.Abs(flags.eventsDir); err != nil {
				return config.Scanner{}, err
			}
		}
	}

	if flags.interval > 0 {
		cfg.Interval = flags.interval
	}
	if flags.apiURL != config.DefaultAPIURL {
		cfg.APIURL = flags.apiURL
	}
	if flags.historyDB != "" {
		cfg.HistoryPath = flags.historyDB
	}
	return cfg, nil
}

// findConfig resolves the config flag: an existing path is used as is,
// otherwise its basename is searched upward from its directory.
func findConfig(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err == nil {
		return abs, nil
	}
	return config.Find(filepath.Dir(abs), filepath.Base(abs))
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
