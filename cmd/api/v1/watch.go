package v1

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/luscis/ipsecman/cmd/api"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/urfave/cli/v2"
)

type Watch struct {
	Cmd
}

func (o Watch) Tmpl() string {
	return `{{ps -20 .Time}} {{ps -14 .Name}} {{range $k, $v := .Data}}{{$k}} {{end}}
`
}

// Event prints one event per line; json output stays one object per line.
func (o Watch) Event(format string) func(schema.Event) {
	return func(e schema.Event) {
		var err error
		switch format {
		case "json":
			var data []byte
			if data, err = libol.Marshal(e, false); err == nil {
				_, err = api.Writer.Write(append(data, '\n'))
			}
		default:
			err = o.Out(e, format, o.Tmpl())
		}
		if err != nil {
			libol.Warn("Watch.Event: %s", err)
		}
	}
}

func (o Watch) Run(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	mgr := o.Manager()
	defer mgr.Close()
	return mgr.Watch(ctx, o.Event(c.String("format")), c.StringSlice("event")...)
}

func (o Watch) Commands(app *api.App) {
	o.App = app
	app.Command(&cli.Command{
		Name:  "watch",
		Usage: "Print daemon events until interrupted",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "event",
				Aliases: []string{"e"},
				Usage:   "event to subscribe: ike-updown|child-updown|log",
			},
		},
		Action: o.Run,
	})
}
