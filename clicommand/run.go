package clicommand

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/internal/ipc"
	"github.com/clementnerma/bjobs/internal/task"
)

var RunCommand = cli.Command{
	Name:      "run",
	Usage:     "Register and launch a new task",
	ArgsUsage: "<name>",
	Flags: append(globalFlags(),
		cli.StringFlag{Name: "cmd", Usage: "Shell command to run"},
		cli.StringFlag{Name: "using", Usage: "Interpreter to invoke the command with (default /bin/sh -c)"},
		cli.StringFlag{Name: "start-dir", Usage: "Working directory for the command"},
		cli.BoolFlag{Name: "ignore-identicals", Usage: "No-op instead of erroring if a task with the same shell+cmd already exists"},
		cli.BoolFlag{Name: "restart-if-finished", Usage: "With --ignore-identicals, restart the existing task if it has already finished"},
		cli.BoolFlag{Name: "silent", Usage: "Don't print a confirmation message"},
		cli.DurationFlag{Name: "every", Usage: "Run as a recurring task, firing at this interval instead of once immediately"},
	),
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

		run := ipc.RunCommand{
			Name:     name,
			Cmd:      c.String("cmd"),
			Shell:    c.String("using"),
			StartDir: c.String("start-dir"),
		}
		if every := c.Duration("every"); every > 0 {
			run.EveryMS = every.Milliseconds()
		}

		// The server enforces only name uniqueness; the
		// ignore_identicals/restart_if_finished policy is client-side,
		// grounded on original_source/src/main.rs's Action::Run arm.
		if c.Bool("ignore-identicals") {
			tasks, err := client.Tasks()
			if err != nil {
				return fmt.Errorf("checking existing tasks: %w", err)
			}
			for _, snap := range tasks {
				if snap.Task.Name != name {
					continue
				}
				if snap.Task.ShellInvocation() != effectiveShell(run.Shell) || snap.Task.Cmd != run.Cmd {
					return fmt.Errorf("a task with this name already exists!")
				}

				if c.Bool("restart-if-finished") && snap.Status.IsTerminal() {
					if err := client.Restart(name); err != nil {
						return mapClientError("restarting task", err)
					}
					if !c.Bool("silent") {
						l.Notice("Restarting task %s.", name)
					}
				}
				return nil
			}
		}

		if err := client.Run(run); err != nil {
			return mapClientError("registering task", err)
		}

		if !c.Bool("silent") {
			l.Notice("Successfully registered task %s.", name)
		}
		return nil
	},
}

// effectiveShell mirrors task.Task.ShellInvocation for a not-yet-registered
// RunCommand, so the client-side identical check compares like for like.
func effectiveShell(shell string) string {
	if shell == "" {
		return task.DefaultShell
	}
	return shell
}
