package swan

import (
	"bytes"
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/luscis/ipsecman/pkg/config"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/vici"
	"github.com/luscis/ipsecman/pkg/vici/vicitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*Manager, *vicitest.Daemon) {
	d := vicitest.NewDaemon(t)
	m := NewManager(Options{
		Vici: vici.Options{Socket: d.Path, Timeout: 2 * time.Second},
	})
	t.Cleanup(func() { _ = m.Close() })
	return m, d
}

func names(t *testing.T, m *Manager) []string {
	items, err := m.ListConnections()
	require.Nil(t, err, "notExist")
	var result []string
	for _, c := range items {
		result = append(result, c.Name)
	}
	return result
}

func vpn1() *config.Connection {
	return &config.Connection{
		Name:        "vpn1",
		Left:        "any",
		Right:       "203.0.0.1",
		RightSubnet: "10.0.0.0/24",
		Auto:        config.AutoStart,
	}
}

func TestManagerCreate(t *testing.T) {
	m, d := newManager(t)
	d.Fail("initiate", "establishing CHILD_SA 'vpn1' failed")
	ctx := context.Background()

	require.Nil(t, m.CreateConnection(ctx, vpn1()), "notExist")
	assert.Equal(t, []string{"load-conn", "initiate"}, d.Calls(), "be the same.")
	assert.Equal(t, []string{"vpn1"}, names(t, m), "be the same.")

	record, err := m.GetConnection("vpn1")
	require.Nil(t, err, "notExist")
	assert.Equal(t, []string{"203.0.0.1"}, record.Remote, "be the same.")
	assert.Equal(t, "2", record.Version, "be the same.")

	status, err := m.GetStatus()
	require.Nil(t, err, "notExist")
	assert.Equal(t, schema.ConnectionStatus{Name: "vpn1", State: schema.StateNotEstablished}, status["vpn1"], "be the same.")

	_, err = m.GetConnection("vpn2")
	assert.Equal(t, KindNotFound, KindOf(err), "be the same.")
}

func TestManagerCreateEstablished(t *testing.T) {
	m, d := newManager(t)
	require.Nil(t, m.CreateConnection(context.Background(), vpn1()), "notExist")
	assert.True(t, d.HasSA("vpn1"), "initiated")

	d.SetSA("vpn1", vicitest.NewSA(42, [4]uint64{10, 20, 1, 2}, [4]uint64{5, 5, 1, 1}))
	status, err := m.GetStatus()
	require.Nil(t, err, "notExist")
	assert.Equal(t, schema.StateEstablished, status["vpn1"].State, "be the same.")
	assert.Equal(t, int64(42), status["vpn1"].EstablishedTime, "be the same.")
	assert.Equal(t, uint64(15), status["vpn1"].BytesIn, "be the same.")
	assert.Equal(t, uint64(25), status["vpn1"].BytesOut, "be the same.")

	sas, err := m.ListSAs()
	require.Nil(t, err, "notExist")
	require.Equal(t, 1, len(sas), "be the same.")
	assert.Equal(t, 2, len(sas[0].Children), "be the same.")
}

func TestManagerCreateNoStart(t *testing.T) {
	m, d := newManager(t)
	c := vpn1()
	c.Auto = config.AutoRoute
	require.Nil(t, m.CreateConnection(context.Background(), c), "notExist")
	assert.Equal(t, []string{"load-conn"}, d.Calls(), "be the same.")
	assert.Equal(t, "none", d.Conn("vpn1").Section("children").Section("vpn1").String("start_action"), "be the same.")
}

func TestManagerCreateInvalid(t *testing.T) {
	m, d := newManager(t)
	err := m.CreateConnection(context.Background(), &config.Connection{})
	assert.Equal(t, KindValidation, KindOf(err), "be the same.")
	assert.Equal(t, 0, len(d.Calls()), "be the same.")

	d.Fail("load-conn", "invalid proposal")
	err = m.CreateConnection(context.Background(), vpn1())
	assert.Equal(t, KindRejected, KindOf(err), "be the same.")
}

func TestManagerReloadSecrets(t *testing.T) {
	m, d := newManager(t)
	assert.Nil(t, m.ReloadSecrets(), "notExist")
	assert.Nil(t, m.ReloadSecrets(), "notExist")
	assert.Equal(t, 2, d.Secrets(), "be the same.")
	assert.Equal(t, 0, len(names(t, m)), "be the same.")
}

func TestManagerDeleteActive(t *testing.T) {
	m, d := newManager(t)
	ctx := context.Background()
	require.Nil(t, m.CreateConnection(ctx, vpn1()), "notExist")
	d.Reset()
	d.Fail("terminate", "terminating IKE_SA failed")

	require.Nil(t, m.DeleteConnection(ctx, "vpn1"), "notExist")
	assert.Equal(t, []string{"terminate", "unload-conn"}, d.Calls(), "be the same.")
	assert.Equal(t, 0, len(names(t, m)), "be the same.")

	status, err := m.GetStatus()
	require.Nil(t, err, "notExist")
	_, ok := status["vpn1"]
	assert.False(t, ok, "no stale status")
}

func TestManagerDeleteFallback(t *testing.T) {
	m, d := newManager(t)
	ctx := context.Background()
	require.Nil(t, m.CreateConnection(ctx, vpn1()), "notExist")
	d.Fail("unload-conn", "busy")
	d.Handle("reload-settings", func(_ *vicitest.Conn, _ *vici.Section) *vici.Section {
		d.Remove("vpn1")
		return vicitest.Success()
	})
	assert.Nil(t, m.DeleteConnection(ctx, "vpn1"), "notExist")
	assert.Equal(t, 0, len(names(t, m)), "be the same.")
}

func TestManagerDeleteFails(t *testing.T) {
	m, d := newManager(t)
	ctx := context.Background()
	require.Nil(t, m.CreateConnection(ctx, vpn1()), "notExist")
	d.Fail("unload-conn", "busy")

	err := m.DeleteConnection(ctx, "vpn1")
	assert.Equal(t, KindRejected, KindOf(err), "be the same.")
	assert.Equal(t, 1, d.Reloads(), "be the same.")
	assert.Equal(t, []string{"vpn1"}, names(t, m), "be the same.")

	err = m.DeleteConnection(ctx, "")
	assert.Equal(t, KindValidation, KindOf(err), "be the same.")
}

func TestManagerUpdateRename(t *testing.T) {
	m, d := newManager(t)
	ctx := context.Background()
	require.Nil(t, m.CreateConnection(ctx, vpn1()), "notExist")
	d.Reset()

	c := vpn1()
	c.Name = "vpn1b"
	require.Nil(t, m.UpdateConnection(ctx, "vpn1", c), "notExist")
	assert.Equal(t, []string{"terminate", "unload-conn", "load-conn", "initiate"}, d.Calls(), "be the same.")
	assert.Equal(t, []string{"vpn1b"}, names(t, m), "be the same.")
}

func TestManagerUpdatePartial(t *testing.T) {
	m, d := newManager(t)
	ctx := context.Background()
	require.Nil(t, m.CreateConnection(ctx, vpn1()), "notExist")
	d.Fail("load-conn", "duplicate child")

	c := vpn1()
	c.Name = "vpn1b"
	err := m.UpdateConnection(ctx, "vpn1", c)
	assert.Equal(t, KindPartialUpdate, KindOf(err), "be the same.")
	var partial *PartialUpdateError
	if assert.ErrorAs(t, err, &partial) {
		assert.Equal(t, "vpn1", partial.Name, "be the same.")
		assert.Equal(t, "vpn1b", partial.NewName, "be the same.")
	}
	assert.Equal(t, 0, len(names(t, m)), "be the same.")
}

func TestManagerUpdateFails(t *testing.T) {
	m, d := newManager(t)
	ctx := context.Background()

	err := m.UpdateConnection(ctx, "vpn1", vpn1())
	assert.Equal(t, KindRejected, KindOf(err), "be the same.")
	assert.Equal(t, []string{"terminate", "unload-conn"}, d.Calls(), "be the same.")

	d.Reset()
	bad := vpn1()
	bad.Version = 5
	err = m.UpdateConnection(ctx, "vpn1", bad)
	assert.Equal(t, KindValidation, KindOf(err), "be the same.")
	assert.Equal(t, 0, len(d.Calls()), "be the same.")
}

func TestManagerStartStop(t *testing.T) {
	m, d := newManager(t)
	ctx := context.Background()
	c := vpn1()
	c.Auto = config.AutoNone
	require.Nil(t, m.CreateConnection(ctx, c), "notExist")

	_, err := m.Start(ctx, "vpn1")
	require.Nil(t, err, "notExist")
	assert.True(t, d.HasSA("vpn1"), "up")

	_, err = m.Stop(ctx, "vpn1")
	require.Nil(t, err, "notExist")
	assert.False(t, d.HasSA("vpn1"), "down")

	_, err = m.Stop(ctx, "vpn1")
	assert.Equal(t, KindRejected, KindOf(err), "be the same.")
	_, err = m.Start(ctx, "missing")
	assert.Equal(t, KindRejected, KindOf(err), "be the same.")
}

func TestManagerStats(t *testing.T) {
	m, _ := newManager(t)
	stats, err := m.GetStats()
	require.Nil(t, err, "notExist")
	assert.Equal(t, uint64(2), stats.Scheduled, "be the same.")
	assert.Equal(t, uint64(16), stats.Workers.Total, "be the same.")
	assert.Equal(t, uint64(4), stats.Workers.Active["critical"], "be the same.")
	assert.Equal(t, []string{"charon", "pem", "openssl", "vici"}, stats.Plugins, "be the same.")
	assert.Nil(t, m.ReloadSettings(), "notExist")
}

func TestManagerUnavailable(t *testing.T) {
	m := NewManager(Options{Vici: vici.Options{Socket: "/nonexistent/charon.vici", Timeout: time.Second}})
	defer m.Close()

	_, err := m.ListConnections()
	assert.Equal(t, KindUnavailable, KindOf(err), "be the same.")
	_, err = m.GetStatus()
	assert.Equal(t, KindUnavailable, KindOf(err), "be the same.")
	err = m.ReloadSecrets()
	assert.Equal(t, KindUnavailable, KindOf(err), "be the same.")
	r := NewResult("reload", "", "", err)
	assert.Equal(t, "ConnectionUnavailable", r.Kind, "be the same.")
	assert.False(t, r.Ok(), "failed")
}

func TestManagerStatusUnknown(t *testing.T) {
	m, d := newManager(t)
	c := vpn1()
	c.Auto = config.AutoNone
	require.Nil(t, m.CreateConnection(context.Background(), c), "notExist")
	d.Handle("list-sas", func(_ *vicitest.Conn, _ *vici.Section) *vici.Section {
		return vicitest.Failure("listing failed")
	})

	status, err := m.GetStatus()
	assert.Equal(t, KindRejected, KindOf(err), "be the same.")
	assert.Equal(t, schema.StateUnknown, status["vpn1"].State, "be the same.")
}

func TestManagerWatch(t *testing.T) {
	m, d := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var lock sync.Mutex
	var events []schema.Event
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(e schema.Event) {
			lock.Lock()
			defer lock.Unlock()
			events = append(events, e)
		})
	}()

	received := func() int {
		lock.Lock()
		defer lock.Unlock()
		return len(events)
	}
	deadline := time.Now().Add(3 * time.Second)
	for received() == 0 && time.Now().Before(deadline) {
		d.Broadcast("ike-updown", vici.NewSection().SetString("up", "yes"))
		time.Sleep(50 * time.Millisecond)
	}
	require.NotEqual(t, 0, received(), "event received")
	lock.Lock()
	assert.Equal(t, "ike-updown", events[0].Name, "be the same.")
	assert.Equal(t, "yes", events[0].Data["up"], "be the same.")
	lock.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.Nil(t, err, "notExist")
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestManagerVersion(t *testing.T) {
	m, _ := newManager(t)
	v, err := m.Version()
	require.Nil(t, err, "notExist")
	assert.Equal(t, "charon", v.Daemon, "be the same.")
	assert.Equal(t, "5.9.13", v.Version, "be the same.")
}

func captureLog(t *testing.T) *bytes.Buffer {
	buf := &bytes.Buffer{}
	libol.Logger.Lock.Lock()
	std := libol.Logger.Std
	libol.Logger.Std = log.New(buf, "", 0)
	libol.Logger.Lock.Unlock()
	t.Cleanup(func() {
		libol.Logger.Lock.Lock()
		libol.Logger.Std = std
		libol.Logger.Lock.Unlock()
	})
	return buf
}

func TestManagerGetConnectionMissing(t *testing.T) {
	m, _ := newManager(t)
	buf := captureLog(t)
	_, err := m.GetConnection("missing")
	assert.Equal(t, KindNotFound, KindOf(err), "be the same.")
	libol.Logger.Lock.Lock()
	out := buf.String()
	libol.Logger.Lock.Unlock()
	assert.Contains(t, out, "WARN|swan|Manager.GetConnection: missing not found", "be the same.")
}

func TestManagerVersionFails(t *testing.T) {
	m, d := newManager(t)
	d.Handle("version", func(_ *vicitest.Conn, _ *vici.Section) *vici.Section {
		return vicitest.Failure("no version")
	})
	buf := captureLog(t)
	_, err := m.Version()
	assert.Equal(t, KindRejected, KindOf(err), "be the same.")
	libol.Logger.Lock.Lock()
	out := buf.String()
	libol.Logger.Lock.Unlock()
	assert.Contains(t, out, "ERROR|swan|Manager.Version:", "be the same.")
}

func TestManagerInitiateTimeoutCapped(t *testing.T) {
	m := NewManager(Options{
		Vici:            vici.Options{Socket: "/nonexistent/charon.vici", Timeout: 2 * time.Second},
		InitiateTimeout: 60000,
	})
	defer m.Close()
	i, ok := m.Initiator().(*ViciInitiator)
	require.True(t, ok, "vici initiator")
	assert.Equal(t, 1500, i.Timeout, "be the same.")

	m = NewManager(Options{Vici: vici.Options{Socket: "/nonexistent/charon.vici"}})
	defer m.Close()
	i = m.Initiator().(*ViciInitiator)
	assert.Equal(t, -1, i.Timeout, "be the same.")
}
