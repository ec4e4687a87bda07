package clicommand

import (
	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/internal/daemonize"
	"github.com/clementnerma/bjobs/internal/ipc"
)

var StatusCommand = cli.Command{
	Name:  "status",
	Usage: "Report whether the daemon is running",
	Flags: globalFlags(),
	Action: func(c *cli.Context) error {
		l, paths, err := setup(c)
		if err != nil {
			return err
		}

		if !daemonize.IsRunning(paths) {
			l.Notice("The daemon is not running.")
			return NewSilentExitError(1)
		}

		client, err := ipc.Dial(paths.SocketPath)
		if err != nil {
			return mapClientError("connecting to the daemon", err)
		}
		defer client.Close()

		pid, err := client.Hello()
		if err != nil {
			return mapClientError("contacting the daemon", err)
		}

		l.Notice("The daemon is running (pid %s).", pid)
		return nil
	},
}
