package command

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/cli/repl"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively",
		Description: "Each line is run as a claimledger-cli command with the global flags\n" +
			"given to shell. End a line with ? to list matching commands.",
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	global := passthroughFlags(c)

	r := repl.New(repl.Config{
		Input:       c.App.Reader,
		Output:      stdout(c),
		HistoryFile: filepath.Join(filepath.Dir(c.String("config")), "history"),
		Commands:    commandPaths(c.App.Commands, ""),
	}, func(args []string) error {
		if len(args) > 0 && args[0] == "shell" {
			return fmt.Errorf("already in the shell")
		}

		app := App()
		app.Reader = c.App.Reader
		app.Writer = c.App.Writer
		app.ErrWriter = c.App.ErrWriter
		app.ExitErrHandler = func(*cli.Context, error) {}

		full := make([]string, 0, 1+len(global)+len(args))
		full = append(full, c.App.Name)
		full = append(full, global...)
		full = append(full, args...)
		return app.Run(full)
	})
	return r.Run()
}

// passthroughFlags re-encodes the global flags set on the shell invocation.
func passthroughFlags(c *cli.Context) []string {
	var args []string
	for _, name := range []string{"config", "server", "api-key-id", "api-key", "ca-file", "profile", "output"} {
		if c.IsSet(name) {
			args = append(args, "--"+name+"="+c.String(name))
		}
	}
	for _, name := range []string{"insecure", "wide", "verbose"} {
		if c.IsSet(name) {
			args = append(args, fmt.Sprintf("--%s=%t", name, c.Bool(name)))
		}
	}
	if c.IsSet("timeout") {
		args = append(args, "--timeout="+c.Duration("timeout").String())
	}
	return args
}

// commandPaths lists every visible command as a space-separated path.
func commandPaths(cmds []*cli.Command, parent string) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden || cmd.Name == "shell" {
			continue
		}
		path := strings.TrimSpace(parent + " " + cmd.Name)
		paths = append(paths, path)
		paths = append(paths, commandPaths(cmd.Subcommands, path)...)
	}
	return paths
}
