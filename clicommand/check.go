package clicommand

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/internal/ipc"
)

var CheckCommand = cli.Command{
	Name:  "check",
	Usage: "Classify registered tasks and exit non-zero if any qualify",
	Flags: append(globalFlags(),
		cli.BoolFlag{Name: "succeeded", Usage: "Also flag tasks that succeeded (default: only failures)"},
		cli.BoolFlag{Name: "silent", Usage: "Don't print the flagged tasks, just set the exit code"},
	),
	Action: func(c *cli.Context) error {
		l, paths, err := setup(c)
		if err != nil {
			return err
		}

		client, err := ipc.Dial(paths.SocketPath)
		if err != nil {
			return mapClientError("connecting to the daemon", err)
		}
		defer client.Close()

		summary, err := client.Check(c.Bool("succeeded"))
		if err != nil {
			return mapClientError("checking tasks", err)
		}

		if len(summary.Failed) == 0 {
			if !c.Bool("silent") {
				l.Notice("No task qualifies.")
			}
			return nil
		}

		if !c.Bool("silent") {
			for _, entry := range summary.Failed {
				l.Notice(fmt.Sprintf("%s: %s", entry.Name, entry.Reason))
			}
		}

		return NewSilentExitError(1)
	},
}
