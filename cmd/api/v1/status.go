package v1

import (
	"github.com/luscis/ipsecman/cmd/api"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/swan"
	"github.com/urfave/cli/v2"
)

type Status struct {
	Cmd
}

func (o Status) Tmpl() string {
	return `# total {{ len . }}
{{ps -16 "name"}} {{ps -16 "state"}} {{ps -10 "uptime"}} {{ps -10 "in"}} {{ps -10 "out"}} {{ps -10 "pkts in"}} {{ps -10 "pkts out"}}
{{- range . }}
{{ps -16 .Name}} {{ps -16 .State}} {{ps -10 (pt .EstablishedTime)}} {{ps -10 (pb .BytesIn)}} {{ps -10 (pb .BytesOut)}} {{pi -10 .PacketsIn}} {{pi -10 .PacketsOut}}
{{- end }}
`
}

func (o Status) List(c *cli.Context) error {
	mgr := o.Manager()
	defer mgr.Close()
	status, err := mgr.GetStatus()
	if err != nil && status == nil {
		return err
	}
	if err != nil {
		libol.Warn("Status.List: %s", err)
	}
	items := swan.SortStatus(status)
	if name := c.Args().First(); name != "" {
		value, ok := status[name]
		if !ok {
			return &swan.NotFoundError{Name: name}
		}
		items = []schema.ConnectionStatus{value}
	}
	if oErr := o.Out(items, c.String("format"), o.Tmpl()); oErr != nil {
		return oErr
	}
	return err
}

func (o Status) Commands(app *api.App) {
	o.App = app
	app.Command(&cli.Command{
		Name:      "status",
		Usage:     "Display the state and traffic of connections",
		ArgsUsage: "[NAME]",
		Action:    o.List,
	})
}
