package config

import (
	"fmt"
	"strings"

	"github.com/luscis/ipsecman/pkg/libol"
)

func EtcFile(name string) string {
	return "/etc/ipsecman/" + name
}

type Log struct {
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

func (l *Log) Correct() {
	if l.Level == "" {
		l.Level = "info"
	}
}

func (l *Log) Verbose() int {
	return libol.ParseLevel(l.Level)
}

func SetListen(listen *string, port int) {
	if *listen == "" {
		*listen = fmt.Sprintf("127.0.0.1:%d", port)
		return
	}
	values := strings.SplitN(*listen, ":", 2)
	if len(values) == 1 {
		*listen = fmt.Sprintf("%s:%d", values[0], port)
	}
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
