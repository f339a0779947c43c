package v1

import (
	"strings"

	"github.com/luscis/ipsecman/cmd/api"
	"github.com/luscis/ipsecman/pkg/config"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/swan"
	"github.com/urfave/cli/v2"
)

type Conn struct {
	Cmd
}

func (o Conn) Tmpl() string {
	return `# total {{ len . }}
{{ps -16 "name"}} {{ps -8 "version"}} {{ps -24 "local"}} {{ps -24 "remote"}}
{{- range . }}
{{ps -16 .Name}} {{ps -8 .Version}} {{ps -24 (join .Local)}} {{ps -24 (join .Remote)}}
{{- end }}
`
}

func (o Conn) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "local", Usage: "local address, %any for any"},
		&cli.StringFlag{Name: "localid", Usage: "local identity"},
		&cli.StringFlag{Name: "localsubnet", Usage: "local traffic selectors, comma separated"},
		&cli.StringFlag{Name: "remote", Usage: "remote address or hostname", Required: true},
		&cli.StringFlag{Name: "remoteid", Usage: "remote identity"},
		&cli.StringFlag{Name: "remotesubnet", Usage: "remote traffic selectors, comma separated"},
		&cli.StringFlag{Name: "ike", Usage: "IKE proposals, comma separated"},
		&cli.StringFlag{Name: "esp", Usage: "ESP proposals, comma separated"},
		&cli.IntFlag{Name: "version", Usage: "IKE version: 1|2", Value: 2},
		&cli.StringFlag{Name: "auto", Usage: "start|route|none", Value: config.AutoStart},
	}
}

func (o Conn) Intent(c *cli.Context, name string) *config.Connection {
	value := &config.Connection{
		Name:        name,
		Left:        c.String("local"),
		LeftId:      c.String("localid"),
		LeftSubnet:  c.String("localsubnet"),
		Right:       c.String("remote"),
		RightId:     c.String("remoteid"),
		RightSubnet: c.String("remotesubnet"),
		Version:     c.Int("version"),
		Auto:        c.String("auto"),
	}
	if ike := c.String("ike"); ike != "" {
		value.Proposals = []string{ike}
	}
	if esp := c.String("esp"); esp != "" {
		value.EspProposal = []string{esp}
	}
	return value
}

func (o Conn) List(c *cli.Context) error {
	mgr := o.Manager()
	defer mgr.Close()
	items, err := mgr.ListConnections()
	if err != nil {
		return err
	}
	return o.Out(items, c.String("format"), o.Tmpl())
}

func (o Conn) Show(c *cli.Context) error {
	name, err := NeedName(c)
	if err != nil {
		return err
	}
	mgr := o.Manager()
	defer mgr.Close()
	item, err := mgr.GetConnection(name)
	if err != nil {
		return err
	}
	return o.Out(item, c.String("format"), "")
}

func (o Conn) Add(c *cli.Context) error {
	name, err := NeedName(c)
	if err != nil {
		return err
	}
	ctx, cancel := o.Context()
	defer cancel()
	mgr := o.Manager()
	defer mgr.Close()
	err = mgr.CreateConnection(ctx, o.Intent(c, name))
	return o.Result(c, swan.NewResult("create", name, "", err))
}

func (o Conn) Edit(c *cli.Context) error {
	name, err := NeedName(c)
	if err != nil {
		return err
	}
	value := o.Intent(c, name)
	if rename := strings.TrimSpace(c.String("rename")); rename != "" {
		value.Name = rename
	}
	ctx, cancel := o.Context()
	defer cancel()
	mgr := o.Manager()
	defer mgr.Close()
	err = mgr.UpdateConnection(ctx, name, value)
	return o.Result(c, swan.NewResult("edit", name, "", err))
}

func (o Conn) Remove(c *cli.Context) error {
	name, err := NeedName(c)
	if err != nil {
		return err
	}
	ctx, cancel := o.Context()
	defer cancel()
	mgr := o.Manager()
	defer mgr.Close()
	err = mgr.DeleteConnection(ctx, name)
	return o.Result(c, swan.NewResult("delete", name, "", err))
}

func (o Conn) Up(c *cli.Context) error {
	name, err := NeedName(c)
	if err != nil {
		return err
	}
	ctx, cancel := o.Context()
	defer cancel()
	mgr := o.Manager()
	defer mgr.Close()
	out, err := mgr.Start(ctx, name)
	return o.Result(c, swan.NewResult("start", name, out, err))
}

func (o Conn) Down(c *cli.Context) error {
	name, err := NeedName(c)
	if err != nil {
		return err
	}
	ctx, cancel := o.Context()
	defer cancel()
	mgr := o.Manager()
	defer mgr.Close()
	out, err := mgr.Stop(ctx, name)
	return o.Result(c, swan.NewResult("stop", name, out, err))
}

// Apply loads every connection of a file, editing the ones the daemon
// already knows and creating the rest.
func (o Conn) Apply(c *cli.Context) error {
	file := c.Args().First()
	if file == "" {
		return libol.NewErr("apply: FILE is required")
	}
	items := &config.Connections{}
	if err := libol.UnmarshalLoad(items, file); err != nil {
		return err
	}
	items.Correct()
	mgr := o.Manager()
	defer mgr.Close()
	records, err := mgr.ListConnections()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(records))
	for _, r := range records {
		known[r.Name] = true
	}
	var results []schema.Result
	failed := false
	for _, value := range items.Items {
		ctx, cancel := o.Context()
		var r schema.Result
		if known[value.Name] {
			r = swan.NewResult("edit", value.Name, "", mgr.UpdateConnection(ctx, value.Name, value))
		} else {
			r = swan.NewResult("create", value.Name, "", mgr.CreateConnection(ctx, value))
		}
		cancel()
		failed = failed || !r.Ok()
		results = append(results, r)
	}
	tmpl := `{{- range . }}` + o.ResultTmpl() + `{{- end }}`
	if err := o.Out(results, c.String("format"), tmpl); err != nil {
		return err
	}
	if failed {
		return cli.Exit("", 1)
	}
	return nil
}

func (o Conn) Commands(app *api.App) {
	o.App = app
	editFlags := append(o.Flags(), &cli.StringFlag{Name: "rename", Usage: "new connection name"})
	app.Command(&cli.Command{
		Name:    "connection",
		Aliases: []string{"conn"},
		Usage:   "Connections loaded into the daemon",
		Action:  o.List,
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Usage:   "Display all connections",
				Aliases: []string{"ls"},
				Action:  o.List,
			},
			{
				Name:      "show",
				Usage:     "Display a connection",
				ArgsUsage: "NAME",
				Action:    o.Show,
			},
			{
				Name:      "add",
				Usage:     "Load a connection and start it",
				ArgsUsage: "NAME",
				Flags:     o.Flags(),
				Action:    o.Add,
			},
			{
				Name:      "edit",
				Usage:     "Replace a connection",
				ArgsUsage: "NAME",
				Flags:     editFlags,
				Action:    o.Edit,
			},
			{
				Name:      "remove",
				Usage:     "Stop and unload a connection",
				Aliases:   []string{"rm"},
				ArgsUsage: "NAME",
				Action:    o.Remove,
			},
			{
				Name:      "up",
				Usage:     "Bring a connection up",
				ArgsUsage: "NAME",
				Action:    o.Up,
			},
			{
				Name:      "down",
				Usage:     "Bring a connection down",
				ArgsUsage: "NAME",
				Action:    o.Down,
			},
			{
				Name:      "apply",
				Usage:     "Load connections from a yaml or json file",
				ArgsUsage: "FILE",
				Action:    o.Apply,
			},
		},
	})
}
