package models

import (
	"time"

	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/vici"
)

// Conn is one entry of a list-conns stream.
type Conn struct {
	Name   string
	Config *vici.Section
}

func (c *Conn) ID() string {
	return c.Name
}

func NewConnSchema(c *Conn) schema.ConnectionRecord {
	return schema.ConnectionRecord{
		Name:    c.Name,
		Local:   c.Config.List("local_addrs"),
		Remote:  c.Config.List("remote_addrs"),
		Version: c.Config.String("version"),
		Config:  c.Config.ToMap(),
	}
}

type ChildSa struct {
	Name string
	Data *vici.Section
}

func (c *ChildSa) ID() string {
	if name := c.Data.String("name"); name != "" {
		return name
	}
	return c.Name
}

func NewChildSaSchema(c *ChildSa) schema.ChildSA {
	d := c.Data
	return schema.ChildSA{
		Name:        c.ID(),
		State:       d.String("state"),
		Mode:        d.String("mode"),
		Protocol:    d.String("protocol"),
		BytesIn:     d.Uint("bytes-in"),
		BytesOut:    d.Uint("bytes-out"),
		PacketsIn:   d.Uint("packets-in"),
		PacketsOut:  d.Uint("packets-out"),
		InstallTime: d.Int("install-time"),
		LocalTS:     d.List("local-ts"),
		RemoteTS:    d.List("remote-ts"),
	}
}

// IkeSa is one entry of a list-sas stream.
type IkeSa struct {
	Name string
	Data *vici.Section
}

func (s *IkeSa) ID() string {
	return s.Name
}

func (s *IkeSa) Established() int64 {
	return s.Data.Int("established")
}

func (s *IkeSa) Children() []*ChildSa {
	childs := s.Data.Section("child-sas")
	items := make([]*ChildSa, 0, childs.Len())
	for _, name := range childs.Keys() {
		items = append(items, &ChildSa{Name: name, Data: childs.Section(name)})
	}
	return items
}

func NewIkeSaSchema(s *IkeSa) schema.SA {
	d := s.Data
	sa := schema.SA{
		Name:        s.Name,
		UniqueId:    d.String("uniqueid"),
		Version:     d.String("version"),
		State:       d.String("state"),
		LocalHost:   d.String("local-host"),
		LocalId:     d.String("local-id"),
		RemoteHost:  d.String("remote-host"),
		RemoteId:    d.String("remote-id"),
		Established: s.Established(),
	}
	for _, child := range s.Children() {
		sa.Children = append(sa.Children, NewChildSaSchema(child))
	}
	return sa
}

func uintMap(s *vici.Section) map[string]uint64 {
	if s.Len() == 0 {
		return nil
	}
	data := make(map[string]uint64, s.Len())
	for _, key := range s.Keys() {
		data[key] = s.Uint(key)
	}
	return data
}

func NewStatsSchema(s *vici.Section) schema.Stats {
	uptime := s.Section("uptime")
	workers := s.Section("workers")
	ikesas := s.Section("ikesas")
	return schema.Stats{
		Uptime: schema.Uptime{
			Running: uptime.String("running"),
			Since:   uptime.String("since"),
		},
		Workers: schema.Workers{
			Total:  workers.Uint("total"),
			Idle:   workers.Uint("idle"),
			Active: uintMap(workers.Section("active")),
		},
		Queues:    uintMap(s.Section("queues")),
		Scheduled: s.Uint("scheduled"),
		IkeSAs: schema.IkeSAs{
			Total:    ikesas.Uint("total"),
			HalfOpen: ikesas.Uint("half-open"),
		},
		Plugins: s.List("plugins"),
	}
}

func NewDaemonVersionSchema(s *vici.Section) schema.DaemonVersion {
	return schema.DaemonVersion{
		Daemon:  s.String("daemon"),
		Version: s.String("version"),
		Sysname: s.String("sysname"),
		Release: s.String("release"),
		Machine: s.String("machine"),
	}
}

func NewEventSchema(e *vici.Event) schema.Event {
	return schema.Event{
		Name: e.Name,
		Time: e.Time.Format(time.RFC3339),
		Data: e.Message.ToMap(),
	}
}
