package swan

import (
	"errors"
	"testing"

	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/vici"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	status map[string]schema.ConnectionStatus
	err    error
}

func (f *fakeSource) GetStatus() (map[string]schema.ConnectionStatus, error) {
	return f.status, f.err
}

func (f *fakeSource) GetStats() (schema.Stats, error) {
	return schema.Stats{IkeSAs: schema.IkeSAs{Total: 1}}, f.err
}

func gather(t *testing.T, c *Collector) map[string][]*dto.Metric {
	families, err := NewRegistry(c).Gather()
	require.Nil(t, err, "notExist")
	data := make(map[string][]*dto.Metric, len(families))
	for _, f := range families {
		data[f.GetName()] = f.GetMetric()
	}
	return data
}

func TestCollector(t *testing.T) {
	source := &fakeSource{
		status: map[string]schema.ConnectionStatus{
			"vpn1": {Name: "vpn1", State: schema.StateEstablished, EstablishedTime: 30, BytesIn: 100},
			"vpn2": {Name: "vpn2", State: schema.StateNotEstablished},
		},
	}
	data := gather(t, NewCollector(source))

	assert.Equal(t, 1.0, data["ipsecman_up"][0].GetGauge().GetValue(), "be the same.")
	assert.Equal(t, 1.0, data["ipsecman_ikesas"][0].GetGauge().GetValue(), "be the same.")
	established := data["ipsecman_connection_established"]
	require.Equal(t, 2, len(established), "be the same.")
	for _, m := range established {
		value := m.GetGauge().GetValue()
		switch m.GetLabel()[0].GetValue() {
		case "vpn1":
			assert.Equal(t, 1.0, value, "be the same.")
		case "vpn2":
			assert.Equal(t, 0.0, value, "be the same.")
		}
	}
	assert.Equal(t, 2, len(data["ipsecman_connection_bytes_in"]), "be the same.")
}

func TestCollectorDown(t *testing.T) {
	source := &fakeSource{err: &vici.UnavailableError{Socket: "s", Op: "dial", Err: errors.New("refused")}}
	data := gather(t, NewCollector(source))
	assert.Equal(t, 0.0, data["ipsecman_up"][0].GetGauge().GetValue(), "be the same.")
	_, ok := data["ipsecman_connection_established"]
	assert.False(t, ok, "no connections")
	scrapes := data["ipsecman_scrapes_total"]
	require.Equal(t, 1, len(scrapes), "be the same.")
	assert.Equal(t, "ConnectionUnavailable", scrapes[0].GetLabel()[0].GetValue(), "be the same.")
}
