package clicommand

import "github.com/urfave/cli"

// BjobsCommands lists every subcommand the CLI exposes, in the order they
// are shown in `bjobs help`, grounded on buildkite-agent/clicommand/commands.go.
var BjobsCommands = []cli.Command{
	StartCommand,
	StopCommand,
	StatusCommand,
	RunCommand,
	ListCommand,
	RestartCommand,
	KillCommand,
	RemoveCommand,
	LogsCommand,
	CheckCommand,
}
