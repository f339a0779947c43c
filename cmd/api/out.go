package api

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/ghodss/yaml"
	"github.com/luscis/ipsecman/pkg/libol"
)

var Writer io.Writer = os.Stdout

func OutJson(data interface{}) error {
	if out, err := libol.Marshal(data, true); err == nil {
		fmt.Fprintln(Writer, string(out))
	} else {
		return err
	}
	return nil
}

func OutYaml(data interface{}) error {
	if out, err := yaml.Marshal(data); err == nil {
		fmt.Fprint(Writer, string(out))
	} else {
		return err
	}
	return nil
}

func pad(space int, verb string) string {
	if space < 0 {
		return "%-" + strconv.Itoa(-space) + verb
	}
	return "%" + strconv.Itoa(space) + verb
}

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"ps": func(space int, args ...interface{}) string {
			return fmt.Sprintf(pad(space, "s"), args...)
		},
		"pi": func(space int, args ...interface{}) string {
			return fmt.Sprintf(pad(space, "d"), args...)
		},
		"pt": func(value int64) string {
			return libol.PrettyTime(value)
		},
		"pb": func(value uint64) string {
			return libol.PrettyBytes(value)
		},
		"p2": func(space int, format, key1, key2 string) string {
			value := fmt.Sprintf(format, key1, key2)
			return fmt.Sprintf(pad(space, "s"), value)
		},
		"join": func(values []string) string {
			return strings.Join(values, ",")
		},
		"ut": func(value int64) string {
			return libol.UnixTime(value)
		},
	}
}

func OutTable(data interface{}, tmpl string) error {
	if tmpl, err := template.New("main").Funcs(FuncMap()).Parse(tmpl); err != nil {
		return err
	} else {
		if err := tmpl.Execute(Writer, data); err != nil {
			return err
		}
	}
	return nil
}

func Out(data interface{}, format string, tmpl string) error {
	libol.Debug("Out %s %s", format, tmpl)
	switch format {
	case "json":
		return OutJson(data)
	case "yaml":
		return OutYaml(data)
	default:
		return OutTable(data, tmpl)
	}
}
