package api

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/luscis/ipsecman/pkg/config"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/urfave/cli/v2"
)

var (
	Conf    = config.EtcFile("ipsecman.yaml")
	Socket  = ""
	Verbose = false
)

type App struct {
	cli    *cli.App
	Config *config.Manager
	Trace  logr.Logger
	Before func(c *cli.Context) error
	After  func(c *cli.Context) error
}

func (a *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "conf",
			Aliases: []string{"c"},
			Usage:   "configuration file",
			Value:   Conf,
		},
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"s"},
			Usage:   "vici socket of the daemon",
			Value:   Socket,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "output format: table|json|yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "enable verbose",
			Value:   false,
		},
	}
}

func (a *App) load(c *cli.Context) error {
	cfg, err := config.NewManager(c.String("conf"))
	if err != nil {
		return err
	}
	if socket := c.String("socket"); socket != "" {
		cfg.Socket = socket
	}
	level := cfg.Log.Verbose()
	Verbose = c.Bool("verbose")
	if Verbose {
		level = libol.DEBUG
		stdr.SetVerbosity(6)
		a.Trace = stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	}
	libol.SetLogger(cfg.Log.File, level)
	a.Config = cfg
	return nil
}

func (a *App) New() *cli.App {
	app := &cli.App{
		Name:     "ipsecman",
		Usage:    "IPsec connection manager for the charon daemon",
		Flags:    a.Flags(),
		Commands: []*cli.Command{},
		Before: func(c *cli.Context) error {
			if err := a.load(c); err != nil {
				return err
			}
			if a.Before == nil {
				return nil
			}
			return a.Before(c)
		},
		After: func(c *cli.Context) error {
			if a.After == nil {
				return nil
			}
			return a.After(c)
		},
	}
	a.cli = app
	return a.cli
}

func (a *App) Command(cmd *cli.Command) {
	a.cli.Commands = append(a.cli.Commands, cmd)
}

func (a *App) Commands() []*cli.Command {
	return a.cli.Commands
}

// NoExit keeps a failing command from exiting the process.
func (a *App) NoExit() {
	a.cli.ExitErrHandler = func(c *cli.Context, err error) {}
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}
