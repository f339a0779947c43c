package swan

import (
	"context"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/luscis/ipsecman/pkg/config"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/models"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/vici"
	"github.com/pkg/errors"
)

var DefaultWatchEvents = []string{"ike-updown", "child-updown"}

type Options struct {
	Vici vici.Options
	// Initiator defaults to the control socket.
	Initiator Initiator
	// InitiateTimeout in milliseconds for initiate and terminate.
	InitiateTimeout int
}

// Manager drives the daemon's connection table. Authoritative state lives
// in the daemon; every query is answered from a fresh listing.
type Manager struct {
	options   Options
	session   *vici.Session
	client    Caller
	initiator Initiator
	out       *libol.SubLogger
}

func NewManager(opts Options) *Manager {
	if opts.InitiateTimeout == 0 {
		opts.InitiateTimeout = -1
	}
	opts.Vici.Correct()
	if limit := int(opts.Vici.Timeout.Milliseconds()) - 500; opts.InitiateTimeout > limit {
		opts.InitiateTimeout = limit
	}
	session := vici.NewSession(opts.Vici)
	m := &Manager{
		options: opts,
		session: session,
		client:  session,
		out:     libol.NewSubLogger("swan"),
	}
	m.initiator = opts.Initiator
	if m.initiator == nil {
		m.initiator = m.viciInitiator()
	}
	return m
}

// NewManagerFromConfig selects the initiator by control mode. trace
// receives the wire exchanges, a zero logger discards them.
func NewManagerFromConfig(c *config.Manager, trace logr.Logger) *Manager {
	opts := Options{
		Vici: vici.Options{
			Socket:  c.Socket,
			Timeout: c.Deadline(),
			Logger:  trace,
		},
		InitiateTimeout: c.Initiate.Timeout,
	}
	if c.Control.Mode == config.ModeCommand {
		opts.Initiator = NewCommandInitiator(&c.Control)
	}
	return NewManager(opts)
}

func (m *Manager) viciInitiator() *ViciInitiator {
	return &ViciInitiator{Client: m.client, Timeout: m.options.InitiateTimeout}
}

func (m *Manager) Initiator() Initiator {
	return m.initiator
}

func (m *Manager) Session() *vici.Session {
	return m.session
}

func (m *Manager) Close() error {
	return m.session.Close()
}

func (m *Manager) listConns(filter string) ([]*models.Conn, error) {
	var msg *vici.Section
	if filter != "" {
		msg = vici.NewSection().SetString("ike", filter)
	}
	entries, err := m.client.Stream("list-conns", "list-conn", msg)
	if err != nil {
		return nil, err
	}
	var conns []*models.Conn
	for _, entry := range entries {
		for _, name := range entry.Keys() {
			if sub := entry.Section(name); sub != nil {
				conns = append(conns, &models.Conn{Name: name, Config: sub})
			}
		}
	}
	return conns, nil
}

func (m *Manager) listSAs(filter string) ([]*models.IkeSa, error) {
	var msg *vici.Section
	if filter != "" {
		msg = vici.NewSection().SetString("ike", filter)
	}
	entries, err := m.client.Stream("list-sas", "list-sa", msg)
	if err != nil {
		return nil, err
	}
	var sas []*models.IkeSa
	for _, entry := range entries {
		for _, name := range entry.Keys() {
			if sub := entry.Section(name); sub != nil {
				sas = append(sas, &models.IkeSa{Name: name, Data: sub})
			}
		}
	}
	return sas, nil
}

func (m *Manager) names() ([]string, error) {
	conns, err := m.listConns("")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(conns))
	for _, c := range conns {
		names = append(names, c.Name)
	}
	return names, nil
}

func (m *Manager) ListConnections() ([]schema.ConnectionRecord, error) {
	conns, err := m.listConns("")
	if err != nil {
		m.out.Error("Manager.ListConnections: %s", err)
		return nil, err
	}
	items := make([]schema.ConnectionRecord, 0, len(conns))
	for _, c := range conns {
		items = append(items, models.NewConnSchema(c))
	}
	return items, nil
}

func (m *Manager) GetConnection(name string) (schema.ConnectionRecord, error) {
	conns, err := m.listConns(name)
	if err != nil {
		m.out.Error("Manager.GetConnection: %s: %s", name, err)
		return schema.ConnectionRecord{}, err
	}
	for _, c := range conns {
		if c.Name == name {
			return models.NewConnSchema(c), nil
		}
	}
	m.out.Warn("Manager.GetConnection: %s not found", name)
	return schema.ConnectionRecord{}, &NotFoundError{Name: name}
}

func (m *Manager) ListSAs() ([]schema.SA, error) {
	sas, err := m.listSAs("")
	if err != nil {
		m.out.Error("Manager.ListSAs: %s", err)
		return nil, err
	}
	items := make([]schema.SA, 0, len(sas))
	for _, sa := range sas {
		items = append(items, models.NewIkeSaSchema(sa))
	}
	return items, nil
}

// GetStatus lists connections, then SAs, and reconciles both. When only
// the SA listing fails every connection is returned as Unknown together
// with the error.
func (m *Manager) GetStatus() (map[string]schema.ConnectionStatus, error) {
	names, err := m.names()
	if err != nil {
		m.out.Error("Manager.GetStatus: %s", err)
		return nil, err
	}
	sas, err := m.listSAs("")
	if err != nil {
		m.out.Error("Manager.GetStatus: %s", err)
		status := make(map[string]schema.ConnectionStatus, len(names))
		for _, name := range names {
			status[name] = schema.ConnectionStatus{Name: name, State: schema.StateUnknown}
		}
		return status, err
	}
	return Reconcile(names, sas), nil
}

// SortStatus orders a status map by name.
func SortStatus(status map[string]schema.ConnectionStatus) []schema.ConnectionStatus {
	items := make([]schema.ConnectionStatus, 0, len(status))
	for _, obj := range status {
		items = append(items, obj)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

func (m *Manager) GetStats() (schema.Stats, error) {
	resp, err := m.client.Call("stats", nil)
	if err != nil {
		m.out.Error("Manager.GetStats: %s", err)
		return schema.Stats{}, err
	}
	return models.NewStatsSchema(resp), nil
}

func (m *Manager) Version() (schema.DaemonVersion, error) {
	resp, err := m.client.Call("version", nil)
	if err != nil {
		m.out.Error("Manager.Version: %s", err)
		return schema.DaemonVersion{}, err
	}
	return models.NewDaemonVersionSchema(resp), nil
}

func (m *Manager) load(ctx context.Context, c *config.Connection) error {
	if _, err := m.client.Call("load-conn", Translate(c)); err != nil {
		return errors.Wrapf(err, "load %s", c.Name)
	}
	m.out.Info("Manager.load: %s", c.Name)
	if c.Auto != config.AutoStart {
		return nil
	}
	if out, err := m.initiator.Up(ctx, c.Name); err != nil {
		m.out.Warn("Manager.load: %s loaded but not initiated: %s %s", c.Name, err, out)
	}
	return nil
}

func (m *Manager) unload(name string) error {
	msg := vici.NewSection().SetString("name", name)
	if _, err := m.client.Call("unload-conn", msg); err != nil {
		return errors.Wrapf(err, "unload %s", name)
	}
	m.out.Info("Manager.unload: %s", name)
	return nil
}

func (m *Manager) terminate(ctx context.Context, name string) {
	if out, err := m.initiator.Down(ctx, name); err != nil {
		m.out.Debug("Manager.terminate: %s: %s %s", name, err, out)
	}
}

func checkName(name string) error {
	c := &config.Connection{Name: name}
	c.Correct()
	if err := c.Validate(); err != nil {
		return err
	}
	return nil
}

// CreateConnection loads c and, with auto=start, initiates it. A failed
// initiation keeps the connection loaded.
func (m *Manager) CreateConnection(ctx context.Context, c *config.Connection) error {
	c.Correct()
	if err := c.Validate(); err != nil {
		m.out.Warn("Manager.CreateConnection: %s", err)
		return err
	}
	if err := m.load(ctx, c); err != nil {
		m.out.Error("Manager.CreateConnection: %s", err)
		return err
	}
	return nil
}

// UpdateConnection replaces oldName with c. When the old connection is
// unloaded but c cannot be loaded a *PartialUpdateError is returned.
func (m *Manager) UpdateConnection(ctx context.Context, oldName string, c *config.Connection) error {
	c.Correct()
	if err := c.Validate(); err != nil {
		m.out.Warn("Manager.UpdateConnection: %s", err)
		return err
	}
	if err := checkName(oldName); err != nil {
		m.out.Warn("Manager.UpdateConnection: %s", err)
		return err
	}
	m.terminate(ctx, oldName)
	if err := m.unload(oldName); err != nil {
		m.out.Error("Manager.UpdateConnection: %s", err)
		return err
	}
	if err := m.load(ctx, c); err != nil {
		err = &PartialUpdateError{Name: oldName, NewName: c.Name, Err: err}
		m.out.Error("Manager.UpdateConnection: %s", err)
		return err
	}
	return nil
}

// DeleteConnection terminates and unloads name. If unload fails a
// settings reload is tried, and the delete counts as done when name is
// no longer listed afterwards.
func (m *Manager) DeleteConnection(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		m.out.Warn("Manager.DeleteConnection: %s", err)
		return err
	}
	m.terminate(ctx, name)
	err := m.unload(name)
	if err == nil {
		return nil
	}
	m.out.Warn("Manager.DeleteConnection: %s", err)
	if _, rErr := m.client.Call("reload-settings", nil); rErr != nil {
		m.out.Error("Manager.DeleteConnection: reload %s", rErr)
		return err
	}
	names, lErr := m.names()
	if lErr != nil {
		m.out.Error("Manager.DeleteConnection: %s", lErr)
		return err
	}
	for _, n := range names {
		if n == name {
			m.out.Error("Manager.DeleteConnection: %s still loaded", name)
			return err
		}
	}
	return nil
}

func (m *Manager) Start(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	out, err := m.initiator.Up(ctx, name)
	if err != nil {
		m.out.Error("Manager.Start: %s: %s", name, err)
		return out, errors.Wrapf(err, "start %s", name)
	}
	m.out.Info("Manager.Start: %s by %s", name, m.initiator.Name())
	return out, nil
}

func (m *Manager) Stop(ctx context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	out, err := m.initiator.Down(ctx, name)
	if err != nil {
		m.out.Error("Manager.Stop: %s: %s", name, err)
		return out, errors.Wrapf(err, "stop %s", name)
	}
	m.out.Info("Manager.Stop: %s by %s", name, m.initiator.Name())
	return out, nil
}

func (m *Manager) ReloadSecrets() error {
	if _, err := m.client.Call("load-shared", vici.NewSection()); err != nil {
		m.out.Error("Manager.ReloadSecrets: %s", err)
		return errors.Wrapf(err, "reload secrets")
	}
	return nil
}

func (m *Manager) ReloadSettings() error {
	if _, err := m.client.Call("reload-settings", nil); err != nil {
		m.out.Error("Manager.ReloadSettings: %s", err)
		return errors.Wrapf(err, "reload settings")
	}
	return nil
}

// Watch passes daemon events to call until ctx is done. It uses its own
// session so events never meet command replies, and resubscribes after
// the daemon comes back.
func (m *Manager) Watch(ctx context.Context, call func(schema.Event), events ...string) error {
	if len(events) == 0 {
		events = DefaultWatchEvents
	}
	s := vici.NewSession(m.options.Vici)
	defer s.Close()
	if err := s.Register(events...); err != nil {
		return err
	}
	m.out.Info("Manager.Watch: %v", events)
	for {
		lost := s.Lost()
		select {
		case <-ctx.Done():
			return nil
		case e := <-s.Events():
			call(models.NewEventSchema(e))
		case <-lost:
			m.out.Warn("Manager.Watch: connection to %s lost", s.Socket())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			if err := s.Connect(); err != nil {
				m.out.Debug("Manager.Watch: %s", err)
			}
		}
	}
}
