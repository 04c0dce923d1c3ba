package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Scanner is the validated scanner configuration view extracted from a
// Config. Paths are absolute, resolved against the directory holding
// the config file.
type Scanner struct {
	// AgentsDir holds the agent source files. Required.
	AgentsDir string

	// EventsDir holds the event definitions grouped by namespace
	// directory. Optional; without it every event lands in the
	// "default" namespace.
	EventsDir string

	// APIURL is the base URL of the graph API, without trailing slash.
	APIURL string

	// Interval between scans in continuous mode. Zero means one-shot.
	Interval time.Duration

	// GraphTypes lists the generator kinds to render and push.
	GraphTypes []string

	// Colors maps namespace names to hex fill colors.
	Colors map[string]string

	// Shapes maps namespace names to Graphviz node shapes.
	Shapes map[string]string

	// FontName is the font for graph text elements.
	FontName string

	// HistoryPath is the SQLite file recording scan runs. Optional.
	HistoryPath string
}

// Default values applied by ScannerFromConfig.
const (
	DefaultAPIURL   = "http://localhost:5555"
	DefaultFontName = "Arial"
)

// DefaultGraphTypes are rendered when the config lists none.
var DefaultGraphTypes = []string{"complete", "full-tree"}

// ScannerFromConfig extracts and validates the scanner view. baseDir is
// the directory relative paths resolve against (normally the config
// file's directory). AgentsDir must exist; EventsDir is only validated
// when set.
func ScannerFromConfig(cfg Config, baseDir string) (Scanner, error) {
	s := Scanner{
		APIURL:      cfg.String("api_url", DefaultAPIURL),
		Interval:    cfg.Duration("interval", 0),
		GraphTypes:  cfg.StringSlice("graph_types", DefaultGraphTypes),
		Colors:      cfg.StringMap("namespaces_colors", nil),
		Shapes:      cfg.StringMap("namespaces_shapes", nil),
		FontName:    cfg.String("graph_fontname", DefaultFontName),
		HistoryPath: cfg.String("history_path", ""),
	}

	agentsDir := cfg.String("agents_dir", "")
	if agentsDir == "" {
		return Scanner{}, fmt.Errorf("agents_dir is not defined in the configuration")
	}

	var err error
	if s.AgentsDir, err = resolveDir(baseDir, agentsDir, true); err != nil {
		return Scanner{}, fmt.Errorf("agents_dir: %w", err)
	}

	if eventsDir := cfg.String("events_dir", ""); eventsDir != "" {
		if s.EventsDir, err = resolveDir(baseDir, eventsDir, true); err != nil {
			return Scanner{}, fmt.Errorf("events_dir: %w", err)
		}
	}

	if s.HistoryPath != "" && !filepath.IsAbs(s.HistoryPath) {
		s.HistoryPath = filepath.Join(baseDir, s.HistoryPath)
	}

	return s, nil
}

// resolveDir makes path absolute against base and optionally checks it
// is an existing directory.
func resolveDir(base, path string, mustExist bool) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	if mustExist {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", path)
		}
	}
	return path, nil
}
