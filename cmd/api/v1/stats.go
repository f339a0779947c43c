package v1

import (
	"github.com/luscis/ipsecman/cmd/api"
	"github.com/urfave/cli/v2"
)

type Stats struct {
	Cmd
}

func (o Stats) Tmpl() string {
	return `Uptime   :  {{ .Uptime.Running }} since {{ .Uptime.Since }}
Workers  :  {{ .Workers.Total }} total, {{ .Workers.Idle }} idle
{{- range $k, $v := .Workers.Active }}
  {{ps -10 $k}} {{ $v }} active
{{- end }}
Scheduled:  {{ .Scheduled }}
IKE SAs  :  {{ .IkeSAs.Total }} total, {{ .IkeSAs.HalfOpen }} half-open
Plugins  :  {{ join .Plugins }}
`
}

func (o Stats) List(c *cli.Context) error {
	mgr := o.Manager()
	defer mgr.Close()
	item, err := mgr.GetStats()
	if err != nil {
		return err
	}
	return o.Out(item, c.String("format"), o.Tmpl())
}

func (o Stats) Commands(app *api.App) {
	o.App = app
	app.Command(&cli.Command{
		Name:   "stats",
		Usage:  "Display daemon counters",
		Action: o.List,
	})
}
