// Package clicommand implements bjobs' CLI surface: one urfave/cli.Command
// per subcommand, each a thin client of the daemon's IPC service contract.
//
// Grounded on buildkite-agent/clicommand's command.go/global_config.go
// idiom (shared global flags, a constructed logger handed to every command)
// but trimmed to what bjobs actually needs: there's no per-job config file
// loader or struct-tag binding here, just a data directory, a verbosity
// flag, and a log format/color pair, so setup() replaces buildkite-agent's
// newCommand[T] generic wrapper and reflection-based CreateLogger with a
// pair of plain functions.
package clicommand

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/config"
	"github.com/clementnerma/bjobs/internal/daemonize"
	"github.com/clementnerma/bjobs/logger"
)

const (
	flagDataDir   = "data-dir"
	flagVerbose   = "verbose"
	flagLogFormat = "log-format"
	flagNoColor   = "no-color"
)

// globalFlags returns the flags every bjobs subcommand accepts, grounded on
// buildkite-agent/clicommand/global_config.go's GlobalConfig fields.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   flagDataDir,
			Usage:  "Directory bjobs stores its socket, log file and lock in",
			EnvVar: "BJOBS_DATA_DIR",
		},
		cli.BoolFlag{
			Name:  flagVerbose,
			Usage: "Print debug-level log messages",
		},
		cli.StringFlag{
			Name:  flagLogFormat,
			Usage: "Log output format, \"text\" or \"json\"",
			Value: "text",
		},
		cli.BoolFlag{
			Name:  flagNoColor,
			Usage: "Disable colored text output",
		},
	}
}

// setup resolves the data directory (flag > config file > default) and
// builds a logger at the requested verbosity and format. It does not create
// the directory; daemonize.Start does that. Every subcommand's Action calls
// this first.
func setup(c *cli.Context) (logger.Logger, daemonize.Paths, error) {
	dataDir := c.String(flagDataDir)
	if dataDir == "" {
		def, err := config.DefaultDataDir()
		if err != nil {
			return nil, daemonize.Paths{}, err
		}
		dataDir = def
	}

	cfg, cfgErr := config.Load(dataDir + "/config.yml")
	if cfgErr == nil && cfg.DataDir != "" && c.String(flagDataDir) == "" {
		dataDir = cfg.DataDir
	}

	logFormat := c.String(flagLogFormat)
	if logFormat == "text" && cfgErr == nil && cfg.LogFormat != "" && !c.IsSet(flagLogFormat) {
		logFormat = cfg.LogFormat
	}

	l, err := buildLogger(logFormat, c.Bool(flagNoColor) || (cfgErr == nil && cfg.NoColor))
	if err != nil {
		return nil, daemonize.Paths{}, err
	}

	if c.Bool(flagVerbose) {
		l.SetLevel(logger.DEBUG)
	} else {
		l.SetLevel(logger.INFO)
	}

	return l, daemonize.NewPaths(dataDir), nil
}

// buildLogger constructs a Logger for the requested format, grounded on
// buildkite-agent/clicommand/global.go's CreateLogger: "task" is shown as a
// prefix rather than an inline field, the same way the teacher prefixes its
// own "agent"/"hook" fields, since a task name identifies the log line's
// subject at a glance.
func buildLogger(format string, noColor bool) (logger.Logger, error) {
	switch format {
	case "text", "":
		printer := logger.NewTextPrinter(os.Stderr)
		printer.IsPrefixFn = func(f logger.Field) bool {
			return f.Key() == "task"
		}
		if noColor {
			printer.Colors = false
		}
		return logger.NewConsoleLogger(printer, os.Exit), nil
	case "json":
		return logger.NewConsoleLogger(logger.NewJSONPrinter(os.Stdout), os.Exit), nil
	default:
		return nil, fmt.Errorf("unknown log format %q, try text or json", format)
	}
}

// mapClientError turns a daemon-side Err(string) response into the CLI's
// "fatal: <message>" convention, matching original_source/src/main.rs's
// `.map_err(|err| anyhow!("{err}"))` call sites.
func mapClientError(action string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", action, err)
}
