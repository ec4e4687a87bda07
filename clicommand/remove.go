package clicommand

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/internal/ipc"
)

var RemoveCommand = cli.Command{
	Name:      "remove",
	Usage:     "Delete a task's registry entry, killing it first if running",
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

		if err := client.Remove(name); err != nil {
			return mapClientError("removing task", err)
		}

		l.Notice("Successfully removed task.")
		return nil
	},
}
