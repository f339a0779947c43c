package v1

import (
	"github.com/luscis/ipsecman/cmd/api"
	"github.com/urfave/cli/v2"
)

type SA struct {
	Cmd
}

func (o SA) Tmpl() string {
	return `# total {{ len . }}
{{ps -16 "name"}} {{ps -12 "state"}} {{ps -20 "remote"}} {{ps -10 "uptime"}} {{ps -16 "child"}} {{ps -10 "in"}} {{ps -10 "out"}}
{{- range . }}
{{ps -16 .Name}} {{ps -12 .State}} {{ps -20 .RemoteHost}} {{ps -10 (pt .Established)}}
{{- range .Children }}
{{ps -61 ""}} {{ps -16 .Name}} {{ps -10 (pb .BytesIn)}} {{ps -10 (pb .BytesOut)}}
{{- end }}
{{- end }}
`
}

func (o SA) List(c *cli.Context) error {
	mgr := o.Manager()
	defer mgr.Close()
	items, err := mgr.ListSAs()
	if err != nil {
		return err
	}
	return o.Out(items, c.String("format"), o.Tmpl())
}

func (o SA) Commands(app *api.App) {
	o.App = app
	app.Command(&cli.Command{
		Name:   "sa",
		Usage:  "Active IKE security associations",
		Action: o.List,
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Usage:   "Display all IKE and child SAs",
				Aliases: []string{"ls"},
				Action:  o.List,
			},
		},
	})
}
