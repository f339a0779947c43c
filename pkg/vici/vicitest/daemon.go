package vicitest

import (
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/luscis/ipsecman/pkg/vici"
)

// Daemon keeps a connection table and active SAs behind a Server and
// answers the commands a connection manager issues.
type Daemon struct {
	*Server

	lock     sync.Mutex
	order    []string
	conns    map[string]*vici.Section
	sas      map[string]*vici.Section
	failures map[string]string
	secrets  int
	reloads  int
}

func NewDaemon(t testing.TB) *Daemon {
	d := &Daemon{
		Server:   NewServer(t),
		conns:    make(map[string]*vici.Section, 8),
		sas:      make(map[string]*vici.Section, 8),
		failures: make(map[string]string, 4),
	}
	d.Handle("load-conn", d.loadConn)
	d.Handle("unload-conn", d.unloadConn)
	d.Handle("list-conns", d.listConns)
	d.Handle("list-sas", d.listSAs)
	d.Handle("initiate", d.initiate)
	d.Handle("terminate", d.terminate)
	d.Handle("load-shared", d.loadShared)
	d.Handle("reload-settings", d.reloadSettings)
	d.Handle("stats", d.stats)
	d.Handle("version", d.version)
	return d
}

// Fail makes every following call of command fail with errmsg. An empty
// errmsg clears it.
func (d *Daemon) Fail(command, errmsg string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if errmsg == "" {
		delete(d.failures, command)
		return
	}
	d.failures[command] = errmsg
}

func (d *Daemon) failure(command string) *vici.Section {
	d.lock.Lock()
	defer d.lock.Unlock()
	if errmsg, ok := d.failures[command]; ok {
		return Failure(errmsg)
	}
	return nil
}

// SetSA installs an active SA under name.
func (d *Daemon) SetSA(name string, sa *vici.Section) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.sas[name] = sa
}

func (d *Daemon) Conn(name string) *vici.Section {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.conns[name]
}

func (d *Daemon) HasSA(name string) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	_, ok := d.sas[name]
	return ok
}

func (d *Daemon) Secrets() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.secrets
}

func (d *Daemon) Reloads() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.reloads
}

// Remove drops a connection without a request, as a settings reload
// would.
func (d *Daemon) Remove(name string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.remove(name)
}

func (d *Daemon) remove(name string) {
	delete(d.conns, name)
	delete(d.sas, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Daemon) loadConn(_ *Conn, req *vici.Section) *vici.Section {
	if resp := d.failure("load-conn"); resp != nil {
		return resp
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	for _, name := range req.Keys() {
		if _, ok := d.conns[name]; !ok {
			d.order = append(d.order, name)
		}
		d.conns[name] = req.Section(name)
	}
	return Success()
}

func (d *Daemon) unloadConn(_ *Conn, req *vici.Section) *vici.Section {
	if resp := d.failure("unload-conn"); resp != nil {
		return resp
	}
	name := req.String("name")
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, ok := d.conns[name]; !ok {
		return Failure(fmt.Sprintf("unloading connection '%s' failed", name))
	}
	d.remove(name)
	return Success()
}

func (d *Daemon) listConns(c *Conn, req *vici.Section) *vici.Section {
	filter := req.String("ike")
	d.lock.Lock()
	items := make([]*vici.Section, 0, len(d.order))
	for _, name := range d.order {
		if filter != "" && filter != name {
			continue
		}
		items = append(items, vici.NewSection().SetSection(name, d.conns[name]))
	}
	d.lock.Unlock()
	for _, item := range items {
		c.Emit("list-conn", item)
	}
	return vici.NewSection()
}

func (d *Daemon) listSAs(c *Conn, req *vici.Section) *vici.Section {
	filter := req.String("ike")
	d.lock.Lock()
	items := make([]*vici.Section, 0, len(d.sas))
	for name, sa := range d.sas {
		if filter != "" && filter != name {
			continue
		}
		items = append(items, vici.NewSection().SetSection(name, sa))
	}
	d.lock.Unlock()
	for _, item := range items {
		c.Emit("list-sa", item)
	}
	return vici.NewSection()
}

// NewSA builds an established IKE SA with one child SA per traffic
// counter set. Each set is bytes-in, bytes-out, packets-in, packets-out.
func NewSA(established int64, children ...[4]uint64) *vici.Section {
	childs := vici.NewSection()
	for i, child := range children {
		name := strconv.Itoa(i + 1)
		childs.SetSection(name, vici.NewSection().
			SetString("name", name).
			SetString("state", "INSTALLED").
			SetString("bytes-in", strconv.FormatUint(child[0], 10)).
			SetString("bytes-out", strconv.FormatUint(child[1], 10)).
			SetString("packets-in", strconv.FormatUint(child[2], 10)).
			SetString("packets-out", strconv.FormatUint(child[3], 10)))
	}
	return vici.NewSection().
		SetString("state", "ESTABLISHED").
		SetString("version", "2").
		SetString("established", strconv.FormatInt(established, 10)).
		SetSection("child-sas", childs)
}

func (d *Daemon) initiate(_ *Conn, req *vici.Section) *vici.Section {
	if resp := d.failure("initiate"); resp != nil {
		return resp
	}
	name := req.String("ike")
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, ok := d.conns[name]; !ok {
		return Failure(fmt.Sprintf("CHILD_SA config '%s' not found", name))
	}
	d.sas[name] = NewSA(0, [4]uint64{})
	return Success()
}

func (d *Daemon) terminate(_ *Conn, req *vici.Section) *vici.Section {
	if resp := d.failure("terminate"); resp != nil {
		return resp
	}
	name := req.String("ike")
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, ok := d.sas[name]; !ok {
		return Failure("no matching SAs to terminate found")
	}
	delete(d.sas, name)
	return Success()
}

func (d *Daemon) loadShared(_ *Conn, _ *vici.Section) *vici.Section {
	if resp := d.failure("load-shared"); resp != nil {
		return resp
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	d.secrets++
	return Success()
}

func (d *Daemon) reloadSettings(_ *Conn, _ *vici.Section) *vici.Section {
	if resp := d.failure("reload-settings"); resp != nil {
		return resp
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	d.reloads++
	return Success()
}

func (d *Daemon) stats(_ *Conn, _ *vici.Section) *vici.Section {
	d.lock.Lock()
	defer d.lock.Unlock()
	return vici.NewSection().
		SetSection("uptime", vici.NewSection().
			SetString("running", "1 hour").
			SetString("since", "Oct 19 08:00:00 2026")).
		SetSection("workers", vici.NewSection().
			SetString("total", "16").
			SetString("idle", "11").
			SetSection("active", vici.NewSection().
				SetString("critical", "4").
				SetString("high", "0").
				SetString("medium", "1").
				SetString("low", "0"))).
		SetSection("queues", vici.NewSection().
			SetString("critical", "0").
			SetString("high", "0").
			SetString("medium", "0").
			SetString("low", "0")).
		SetString("scheduled", "2").
		SetSection("ikesas", vici.NewSection().
			SetString("total", strconv.Itoa(len(d.sas))).
			SetString("half-open", "0")).
		SetList("plugins", "charon", "pem", "openssl", "vici")
}

func (d *Daemon) version(_ *Conn, _ *vici.Section) *vici.Section {
	return vici.NewSection().
		SetString("daemon", "charon").
		SetString("version", "5.9.13").
		SetString("sysname", "Linux").
		SetString("release", "6.1.0").
		SetString("machine", "x86_64")
}
