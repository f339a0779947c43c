package v1

import (
	"context"

	"github.com/luscis/ipsecman/cmd/api"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/swan"
	"github.com/urfave/cli/v2"
)

type Cmd struct {
	App *api.App
}

func (c Cmd) Tmpl() string {
	return ""
}

func (c Cmd) Out(data interface{}, format string, tmpl string) error {
	if tmpl == "" && format == "table" {
		format = "yaml"
	}
	return api.Out(data, format, tmpl)
}

func (c Cmd) Manager() *swan.Manager {
	return swan.NewManagerFromConfig(c.App.Config, c.App.Trace)
}

// Context bounds one lifecycle call by the control timeout plus the
// exchange timeout.
func (c Cmd) Context() (context.Context, context.CancelFunc) {
	cfg := c.App.Config
	return context.WithTimeout(context.Background(), cfg.Control.Deadline()+cfg.Deadline())
}

func (c Cmd) ResultTmpl() string {
	return `{{ps -16 .Name}} {{ps -8 .Action}} {{if .Ok}}ok{{else}}{{.Kind}}: {{.Message}}{{end}}
{{- if .Output }}
{{ .Output }}
{{- end }}
`
}

// Result prints the outcome of a lifecycle operation and turns a failure
// into a non-zero exit.
func (c Cmd) Result(ctx *cli.Context, r schema.Result) error {
	if err := c.Out(r, ctx.String("format"), c.ResultTmpl()); err != nil {
		return err
	}
	if !r.Ok() {
		libol.Debug("Cmd.Result: %s %s", r.Action, r.Kind)
		return cli.Exit("", 1)
	}
	return nil
}

func NeedName(c *cli.Context) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", libol.NewErr("%s: NAME is required", c.Command.Name)
	}
	return name, nil
}

func Before(c *cli.Context) error {
	return nil
}

func After(c *cli.Context) error {
	return nil
}

func Commands(app *api.App) {
	app.After = After
	app.Before = Before
	Version{}.Commands(app)
	Conn{}.Commands(app)
	SA{}.Commands(app)
	Status{}.Commands(app)
	Stats{}.Commands(app)
	Secrets{}.Commands(app)
	Settings{}.Commands(app)
	Watch{}.Commands(app)
	Metrics{}.Commands(app)
	Shell{}.Commands(app)
}

// NewApp builds the whole command tree.
func NewApp() *api.App {
	app := &api.App{}
	app.New()
	Commands(app)
	return app
}
