package clicommand

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/config"
	"github.com/clementnerma/bjobs/internal/ipc"
	"github.com/clementnerma/bjobs/internal/paging"
)

var LogsCommand = cli.Command{
	Name:      "logs",
	Usage:     "Print a task's output, or the daemon's own log file if no name is given",
	ArgsUsage: "[name]",
	Flags: append(globalFlags(),
		cli.BoolFlag{Name: "follow", Usage: "Keep streaming new output as it arrives"},
		cli.StringFlag{Name: "pager", Usage: "Pager to pipe output through (default config.yml's pager, else $PAGER, else less)"},
		cli.BoolFlag{Name: "no-less-options", Usage: "Don't pass -R -F to less"},
	),
	Action: func(c *cli.Context) error {
		_, paths, err := setup(c)
		if err != nil {
			return err
		}

		name := c.Args().First()
		pagerFlag := c.String("pager")
		lessOpts := !c.Bool("no-less-options")
		if cfg, err := config.Load(paths.DataDir + "/config.yml"); err == nil {
			if pagerFlag == "" {
				pagerFlag = cfg.Pager
			}
			if cfg.NoLessOptions {
				lessOpts = false
			}
		}
		pager := paging.DefaultPager(pagerFlag)

		fetch := func() (string, error) {
			return fetchLogs(paths.SocketPath, paths.LogPath, name)
		}

		if c.Bool("follow") {
			return paging.Follow(fetch, pager, lessOpts)
		}

		text, err := fetch()
		if err != nil {
			return err
		}
		return paging.Run(text, pager, lessOpts)
	},
}

// fetchLogs returns either a task's buffered output (joined with
// newlines) or, when name is empty, the daemon's own log file contents,
// matching original_source/src/main.rs's Action::Logs arm.
func fetchLogs(socketPath, logPath, name string) (string, error) {
	if name == "" {
		b, err := os.ReadFile(logPath)
		if err != nil {
			return "", fmt.Errorf("reading daemon log file: %w", err)
		}
		return string(b), nil
	}

	client, err := ipc.Dial(socketPath)
	if err != nil {
		return "", fmt.Errorf("connecting to the daemon: %w", err)
	}
	defer client.Close()

	lines, err := client.Logs(name)
	if err != nil {
		return "", mapClientError("fetching logs", err)
	}
	return strings.Join(lines, "\n"), nil
}
