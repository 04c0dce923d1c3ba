/*
Package config provides configuration loading for the event-flow
scanner: type-safe extraction from map[string]any, YAML/JSON file
loading, upward config-file discovery, and the validated Scanner view.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "api_url":  "http://localhost:5555",
	    "interval": "60s",
	})

	url := cfg.String("api_url", "http://localhost:5555")
	interval := cfg.Duration("interval", 0)

All accessors return the default value if the key is missing or the
value cannot be converted to the requested type.

# File Discovery

Find walks parent directories looking for event_flow_config.yaml, so
the scanner can be invoked from anywhere inside a project:

	path, err := config.Find(".", "")
	if err != nil {
	    log.Fatal(err)
	}
	cfg, err := config.FromFile(path)

# Scanner View

ScannerFromConfig validates the scanner-relevant keys (agents_dir is
required and must exist; events_dir is optional) and resolves relative
paths against the config file's directory:

	scanner, err := config.ScannerFromConfig(cfg, filepath.Dir(path))

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
