// Bjobs is a user-space job supervisor: a background daemon that accepts
// commands over a local Unix socket, spawns shell-invoked child processes,
// streams their merged output into in-memory log buffers, and lets clients
// list, inspect, restart, kill, and schedule tasks to run at recurring
// moments in time.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/clementnerma/bjobs/clicommand"
	"github.com/clementnerma/bjobs/version"
)

// appHelpTemplate lists bjobs' commands as a flat list. The teacher's
// equivalent template branches over .VisibleCategories because its command
// set is grouped into categories; every entry in clicommand.BjobsCommands
// is uncategorized, so that branching has nothing to render here and is
// dropped rather than carried over unused. bjobs also has no subcommand
// tree (every command is a leaf), so there is no SubcommandHelpTemplate to
// register either.
const appHelpTemplate = `Usage:
  {{.Name}} <command> [options...]

{{.Usage}}

Commands:
{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}

Run "{{.Name}} <command> --help" for details on a specific command.
`

const commandHelpTemplate = `{{.Description}}

Options:

{{range .VisibleFlags}}  {{.}}
{{ end -}}
`

func printVersion(c *cli.Context) {
	fmt.Fprintf(c.App.Writer, "%s %s\n", c.App.Name, version.FullVersion())
}

func main() {
	cli.AppHelpTemplate = appHelpTemplate
	cli.CommandHelpTemplate = commandHelpTemplate
	cli.VersionPrinter = printVersion

	app := cli.NewApp()
	app.Name = "bjobs"
	app.Usage = "Run and supervise shell commands as named, inspectable background tasks."
	app.Version = version.Version()
	app.Commands = clicommand.BjobsCommands
	app.ErrWriter = os.Stderr

	app.CommandNotFound = func(c *cli.Context, command string) {
		fmt.Fprintf(app.ErrWriter, "bjobs: %q is not a bjobs command.\n", command)
		fmt.Fprintf(app.ErrWriter, "See '%s --help' for the full command list.\n", c.App.Name)
		os.Exit(1)
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(clicommand.PrintMessageAndReturnExitCode(err))
	}
}
