package clicommand

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/internal/ipc"
)

var KillCommand = cli.Command{
	Name:      "kill",
	Usage:     "Signal a running task's process group",
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

		if err := client.Kill(name); err != nil {
			return mapClientError("killing task", err)
		}

		l.Notice("Successfully killed task.")
		return nil
	},
}
