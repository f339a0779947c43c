package v1

import (
	"github.com/luscis/ipsecman/cmd/api"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/urfave/cli/v2"
)

type Version struct {
	Cmd
}

type versions struct {
	Client schema.Version        `json:"client"`
	Daemon *schema.DaemonVersion `json:"daemon,omitempty"`
}

func (v Version) Tmpl() string {
	return `Version  :  {{ .Client.Version }}
Build at :  {{ .Client.Date }}
{{- with .Daemon }}
Daemon   :  {{ .Daemon }} {{ .Version }}
System   :  {{ .Sysname }} {{ .Release }} {{ .Machine }}
{{- end }}
`
}

func (v Version) List(c *cli.Context) error {
	item := versions{Client: schema.NewVersionSchema()}
	mgr := v.Manager()
	defer mgr.Close()
	if daemon, err := mgr.Version(); err == nil {
		item.Daemon = &daemon
	} else {
		libol.Debug("Version.List: %s", err)
	}
	return v.Out(item, c.String("format"), v.Tmpl())
}

func (v Version) Commands(app *api.App) {
	v.App = app
	app.Command(&cli.Command{
		Name:   "version",
		Usage:  "show version information",
		Action: v.List,
	})
}
