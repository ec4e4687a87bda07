package clicommand

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/internal/ipc"
	"github.com/clementnerma/bjobs/internal/task"
)

var ListCommand = cli.Command{
	Name:  "list",
	Usage: "List every registered task and its status",
	Flags: globalFlags(),
	Action: func(c *cli.Context) error {
		l, paths, err := setup(c)
		if err != nil {
			return err
		}

		client, err := ipc.Dial(paths.SocketPath)
		if err != nil {
			return fmt.Errorf("connecting to the daemon: %w", err)
		}
		defer client.Close()

		tasks, err := client.Tasks()
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		if len(tasks) == 0 {
			l.Info("No task found.")
			return nil
		}

		l.Info("Found %d task(s):", len(tasks))

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATUS\tSHELL\tCMD")
		for _, snap := range tasks {
			shell := snap.Task.Shell
			if shell == "" {
				shell = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", snap.Task.Name, statusLabel(snap.Status), shell, snap.Task.Cmd)
		}
		return w.Flush()
	},
}

// statusLabel renders a task's status the way original_source/src/main.rs's
// `list` table does, minus the color codes.
func statusLabel(s task.Status) string {
	switch s.Kind {
	case task.NotStartedYet:
		return "Not started yet"
	case task.Running:
		return "Running"
	case task.Success:
		return "Succeeded"
	case task.Failed:
		if s.Code < 0 {
			return "Failed (killed)"
		}
		return fmt.Sprintf("Failed (code %d)", s.Code)
	case task.RunnerFailed:
		return fmt.Sprintf("Runner failed (%s)", s.Message)
	default:
		return "Unknown"
	}
}
