package v1

import (
	"github.com/luscis/ipsecman/cmd/api"
	"github.com/luscis/ipsecman/pkg/swan"
	"github.com/urfave/cli/v2"
)

type Secrets struct {
	Cmd
}

func (o Secrets) Reload(c *cli.Context) error {
	mgr := o.Manager()
	defer mgr.Close()
	return o.Result(c, swan.NewResult("reload-secrets", "", "", mgr.ReloadSecrets()))
}

func (o Secrets) Commands(app *api.App) {
	o.App = app
	app.Command(&cli.Command{
		Name:  "secrets",
		Usage: "Pre-shared keys of the daemon",
		Subcommands: []*cli.Command{
			{
				Name:   "reload",
				Usage:  "Reload pre-shared keys",
				Action: o.Reload,
			},
		},
	})
}

type Settings struct {
	Cmd
}

func (o Settings) Reload(c *cli.Context) error {
	mgr := o.Manager()
	defer mgr.Close()
	return o.Result(c, swan.NewResult("reload-settings", "", "", mgr.ReloadSettings()))
}

func (o Settings) Commands(app *api.App) {
	o.App = app
	app.Command(&cli.Command{
		Name:  "settings",
		Usage: "Daemon settings",
		Subcommands: []*cli.Command{
			{
				Name:   "reload",
				Usage:  "Reload daemon settings",
				Action: o.Reload,
			},
		},
	})
}
