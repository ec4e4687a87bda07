package clicommand

import (
	"os"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/config"
	"github.com/clementnerma/bjobs/internal/daemonize"
	"github.com/clementnerma/bjobs/internal/daemonstate"
	"github.com/clementnerma/bjobs/internal/scheduler"
	"github.com/clementnerma/bjobs/internal/supervisor"
	"github.com/clementnerma/bjobs/logger"
)

var StartCommand = cli.Command{
	Name:  "start",
	Usage: "Start the daemon in the background",
	Flags: append(globalFlags(),
		cli.BoolFlag{Name: "ignore-started", Usage: "No-op instead of erroring if a daemon is already running"},
	),
	Action: func(c *cli.Context) error {
		l, paths, err := setup(c)
		if err != nil {
			return err
		}

		// A re-exec'd child carries ChildEnvVar instead of re-entering the
		// parent-side handshake, per internal/daemonize's two-phase design.
		if os.Getenv(daemonize.ChildEnvVar) != "" {
			return runDaemon(paths, l)
		}

		exe, err := os.Executable()
		if err != nil {
			return err
		}

		if err := daemonize.Start(exe, paths, c.Bool("ignore-started"), l); err != nil {
			return err
		}

		l.Notice("Daemon started.")
		return nil
	},
}

// runDaemon is the child side: it builds the supervisor and scheduler and
// blocks in daemonize.Serve until a client calls stop(). Scheduler support
// is always wired in, since the supervisor treats a nil scheduler only as
// "reject recurring run() requests", not as "scheduler support is compiled
// out".
func runDaemon(paths daemonize.Paths, l logger.Logger) error {
	if cfg, err := config.Load(paths.DataDir + "/config.yml"); err == nil && cfg.LogLevel != "" {
		if lvl, err := logger.LevelFromString(cfg.LogLevel); err == nil {
			l.SetLevel(lvl)
		}
	}

	state := daemonstate.New()
	sup := supervisor.New(l, nil, state)
	sched := scheduler.New(l, sup.RunScheduled)
	sup.SetScheduler(sched)

	return daemonize.Serve(paths, sup, state, sched, l)
}
