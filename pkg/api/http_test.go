package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luscis/ipsecman/pkg/schema"
	"github.com/luscis/ipsecman/pkg/vici"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	err error
}

func (f *fakeSource) GetStatus() (map[string]schema.ConnectionStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]schema.ConnectionStatus{
		"vpn1": {Name: "vpn1", State: schema.StateEstablished, BytesIn: 42},
	}, nil
}

func (f *fakeSource) GetStats() (schema.Stats, error) {
	return schema.Stats{}, f.err
}

func serve(h *Http, path string) *httptest.ResponseRecorder {
	h.Initialize()
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHttpMetrics(t *testing.T) {
	w := serve(NewHttp("127.0.0.1:0", &fakeSource{}), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code, "be the same.")
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `ipsecman_connection_bytes_in{name="vpn1"} 42`), body)
	assert.True(t, strings.Contains(body, "ipsecman_up 1"), body)
}

func TestHttpHealth(t *testing.T) {
	w := serve(NewHttp("127.0.0.1:0", &fakeSource{}), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code, "be the same.")

	down := &fakeSource{err: &vici.UnavailableError{Socket: "s", Op: "dial", Err: errors.New("refused")}}
	w = serve(NewHttp("127.0.0.1:0", down), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "be the same.")
	result := schema.Result{}
	assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &result), "notExist")
	assert.Equal(t, "ConnectionUnavailable", result.Kind, "be the same.")
}

func TestHttpNotFound(t *testing.T) {
	w := serve(NewHttp("127.0.0.1:0", &fakeSource{}), "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, w.Code, "be the same.")
}
