package v1

import (
	"github.com/luscis/ipsecman/cmd/api"
	papi "github.com/luscis/ipsecman/pkg/api"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/urfave/cli/v2"
)

type Metrics struct {
	Cmd
}

// Serve exports status on the metrics listener until a signal arrives.
func (o Metrics) Serve(c *cli.Context) error {
	listen := o.App.Config.Metrics.Listen
	if value := c.String("listen"); value != "" {
		listen = value
	}
	mgr := o.Manager()
	defer mgr.Close()
	h := papi.NewHttp(listen, mgr)
	if c.Bool("pprof") {
		h.EnablePProf()
	}
	h.Start()
	libol.SdNotify()
	libol.Wait()
	libol.SdStopping()
	h.Shutdown()
	return nil
}

func (o Metrics) Commands(app *api.App) {
	o.App = app
	app.Command(&cli.Command{
		Name:  "metrics",
		Usage: "Serve prometheus metrics of all connections",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "listen address, default from configuration"},
			&cli.BoolFlag{Name: "pprof", Usage: "also serve /debug/pprof"},
		},
		Action: o.Serve,
	})
}
