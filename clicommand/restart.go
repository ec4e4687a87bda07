package clicommand

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/internal/ipc"
)

var RestartCommand = cli.Command{
	Name:      "restart",
	Usage:     "Remove and re-run a task under its existing definition",
	ArgsUsage: "<name>",
	Flags:     globalFlags(),
	Action: func(c *cli.Context) error {
		l, paths, err := setup(c)
		if err != nil {
			return err
		}

		name := c.Args().First()
		if name == "" {
			return fmt.Errorf("missing required argument <name>")
		}

		client, err := ipc.Dial(paths.SocketPath)
		if err != nil {
			return fmt.Errorf("connecting to the daemon: %w", err)
		}
		defer client.Close()

		if err := client.Restart(name); err != nil {
			return mapClientError("restarting task", err)
		}

		l.Notice("Successfully restarted task.")
		return nil
	},
}
