package clicommand

import (
	"errors"
	"time"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/internal/daemonize"
	"github.com/clementnerma/bjobs/internal/ipc"
)

var errNotRunning = errors.New("daemon is not running")

// stopPollInterval paces the post-Stop() wait for the daemon to stop
// answering Hello(), mirroring original_source/src/main.rs's Action::Stop
// polling loop.
const stopPollInterval = 100 * time.Millisecond

var StopCommand = cli.Command{
	Name:  "stop",
	Usage: "Ask the daemon to shut down, waiting for running tasks to terminate first",
	Flags: append(globalFlags(),
		cli.BoolFlag{Name: "ignore-not-running", Usage: "No-op instead of erroring if no daemon is running"},
	),
	Action: func(c *cli.Context) error {
		l, paths, err := setup(c)
		if err != nil {
			return err
		}

		if !daemonize.IsRunning(paths) {
			if c.Bool("ignore-not-running") {
				return nil
			}
			return NewExitError(1, errNotRunning)
		}

		client, err := ipc.Dial(paths.SocketPath)
		if err != nil {
			return mapClientError("connecting to the daemon", err)
		}
		defer client.Close()

		if err := client.Stop(); err != nil {
			return mapClientError("stopping the daemon", err)
		}

		for daemonize.IsRunning(paths) {
			time.Sleep(stopPollInterval)
		}

		l.Notice("Daemon stopped.")
		return nil
	},
}
