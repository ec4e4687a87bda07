// Package config loads the daemon's optional on-disk configuration file.
//
// Grounded on buildkite-agent/cliconfig's loader idiom (CLI flags take
// precedence, falling back to a file on disk) but rewritten around
// gopkg.in/yaml.v3 instead of a bespoke struct-tag loader, since bjobs has
// only a handful of settings and no job-parameter surface to justify that
// machinery.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is bjobs' optional daemon configuration file, `<data_dir>/config.yml`.
// Every field has a sensible zero value so a missing file is equivalent to
// an empty one.
type Config struct {
	// LogLevel is the daemon's minimum log level (debug, notice, info, warn,
	// error, fatal). Empty means the logger's own default (info).
	LogLevel string `yaml:"log_level"`

	// DataDir overrides the default per-user data directory. A `--data-dir`
	// CLI flag always takes precedence over this.
	DataDir string `yaml:"data_dir,omitempty"`

	// Pager overrides the $PAGER environment variable for `logs`. A
	// `--pager` flag always takes precedence over this.
	Pager string `yaml:"pager,omitempty"`

	// NoLessOptions disables passing `-R -F` to `less` by default.
	NoLessOptions bool `yaml:"no_less_options,omitempty"`

	// LogFormat is the CLI's default log output format, "text" or "json".
	// A `--log-format` flag always takes precedence over this.
	LogFormat string `yaml:"log_format,omitempty"`

	// NoColor disables colored text output by default, same precedence as
	// LogFormat.
	NoColor bool `yaml:"no_color,omitempty"`
}

// Load reads and parses the YAML config file at path. A missing file is not
// an error: it returns the zero Config, since bjobs needs no persistence or
// setup step to run.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultDataDir returns the fallback data directory, `~/.bjobs`, used when
// neither `--data-dir` nor a config file overrides it.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return home + "/.bjobs", nil
}
