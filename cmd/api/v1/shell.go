package v1

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/luscis/ipsecman/cmd/api"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/urfave/cli/v2"
)

type Shell struct {
	Cmd
}

// Completer offers every command and subcommand of the tree.
func (o Shell) Completer(commands []*cli.Command) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	var walk func(cmd *cli.Command) *readline.PrefixCompleter
	walk = func(cmd *cli.Command) *readline.PrefixCompleter {
		var children []readline.PrefixCompleterInterface
		for _, sub := range cmd.Subcommands {
			children = append(children, walk(sub))
		}
		return readline.PcItem(cmd.Name, children...)
	}
	for _, cmd := range commands {
		if cmd.Name == "shell" {
			continue
		}
		items = append(items, walk(cmd))
	}
	items = append(items, readline.PcItem("help"), readline.PcItem("quit"))
	return readline.NewPrefixCompleter(items...)
}

// Args prefixes a shell line with the global flags of the shell itself.
func (o Shell) Args(c *cli.Context, line string) []string {
	args := []string{"ipsecman",
		"--conf", c.String("conf"),
		"--format", c.String("format"),
	}
	if socket := c.String("socket"); socket != "" {
		args = append(args, "--socket", socket)
	}
	if c.Bool("verbose") {
		args = append(args, "--verbose")
	}
	return append(args, strings.Fields(line)...)
}

// Execute runs one line on a fresh command tree, so a failing command
// returns to the prompt instead of exiting.
func (o Shell) Execute(c *cli.Context, line string) error {
	app := NewApp()
	app.NoExit()
	return app.Run(o.Args(c, line))
}

func (o Shell) History() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ipsecman_history")
}

func (o Shell) Run(c *cli.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "ipsecman> ",
		HistoryFile:       o.History(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
		AutoComplete:      o.Completer(o.App.Commands()),
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "?":
			line = "help"
		}
		if err := o.Execute(c, line); err != nil {
			fmt.Fprintln(rl.Stderr(), err)
			libol.Debug("Shell.Run: %s", err)
		}
	}
	return nil
}

func (o Shell) Commands(app *api.App) {
	o.App = app
	app.Command(&cli.Command{
		Name:   "shell",
		Usage:  "Interactive console with completion",
		Action: o.Run,
	})
}
