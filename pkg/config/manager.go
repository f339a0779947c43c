package config

import (
	"time"

	"github.com/luscis/ipsecman/pkg/libol"
)

const (
	ModeVici    = "vici"
	ModeCommand = "command"
)

// Control selects how connections are brought up and down.
type Control struct {
	Mode    string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Binary  string `json:"binary,omitempty" yaml:"binary,omitempty"`
	Sudo    *bool  `json:"sudo,omitempty" yaml:"sudo,omitempty"`
	Timeout int    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (c *Control) Correct() {
	if c.Mode == "" {
		c.Mode = ModeCommand
	}
	if c.Binary == "" {
		c.Binary = "/usr/sbin/ipsec"
	}
	if c.Sudo == nil {
		sudo := true
		c.Sudo = &sudo
	}
	if c.Timeout <= 0 {
		c.Timeout = 5
	}
}

func (c *Control) UseSudo() bool {
	return c.Sudo != nil && *c.Sudo
}

func (c *Control) Deadline() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type Initiate struct {
	// Timeout in milliseconds passed with initiate and terminate, -1 to
	// return once the request is queued.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (i *Initiate) Correct() {
	if i.Timeout == 0 {
		i.Timeout = -1
	}
}

type Metrics struct {
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

func (m *Metrics) Correct() {
	SetListen(&m.Listen, 9814)
}

type Manager struct {
	Conf     string   `json:"-" yaml:"-"`
	Socket   string   `json:"socket,omitempty" yaml:"socket,omitempty"`
	Timeout  int      `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Control  Control  `json:"control,omitempty" yaml:"control,omitempty"`
	Initiate Initiate `json:"initiate,omitempty" yaml:"initiate,omitempty"`
	Log      Log      `json:"log,omitempty" yaml:"log,omitempty"`
	Metrics  Metrics  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

func NewManager(conf string) (*Manager, error) {
	m := &Manager{Conf: conf}
	if err := m.Load(); err != nil {
		return nil, err
	}
	m.Correct()
	return m, nil
}

func (m *Manager) Correct() {
	if m.Socket == "" {
		m.Socket = "/var/run/charon.vici"
	}
	if m.Timeout <= 0 {
		m.Timeout = 10
	}
	m.Control.Correct()
	m.Initiate.Correct()
	// charon must answer an initiate before the exchange deadline.
	if limit := m.Timeout*1000 - 500; m.Initiate.Timeout > limit {
		m.Initiate.Timeout = limit
	}
	m.Log.Correct()
	m.Metrics.Correct()
}

func (m *Manager) Deadline() time.Duration {
	return time.Duration(m.Timeout) * time.Second
}

// Load reads Conf if it exists; a missing file keeps the defaults.
func (m *Manager) Load() error {
	if m.Conf == "" {
		return nil
	}
	if err := libol.UnmarshalLoad(m, m.Conf); err != nil {
		return libol.NewErr("config %s: %s", m.Conf, err)
	}
	return nil
}
