package swan

import (
	"testing"

	"github.com/luscis/ipsecman/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestTranslateDefaults(t *testing.T) {
	c := &config.Connection{Name: "vpn1"}
	c.Correct()
	msg := Translate(c)

	assert.Equal(t, []string{"vpn1"}, msg.Keys(), "be the same.")
	conn := msg.Section("vpn1")
	assert.Equal(t, []string{"%any"}, conn.List("local_addrs"), "be the same.")
	assert.Equal(t, []string{"%any"}, conn.List("remote_addrs"), "be the same.")
	assert.Equal(t, "2", conn.String("version"), "be the same.")
	assert.False(t, conn.Has("proposals"), "omitted")
	assert.Equal(t, "psk", conn.Section("local").String("auth"), "be the same.")
	assert.Equal(t, "psk", conn.Section("remote").String("auth"), "be the same.")
	assert.False(t, conn.Section("local").Has("id"), "omitted")

	child := conn.Section("children").Section("vpn1")
	assert.Equal(t, []string{"0.0.0.0/0"}, child.List("local_ts"), "be the same.")
	assert.Equal(t, []string{"0.0.0.0/0"}, child.List("remote_ts"), "be the same.")
	assert.False(t, child.Has("esp_proposals"), "omitted")
	assert.Equal(t, ActionTrap, child.String("start_action"), "be the same.")
}

func TestTranslateIntent(t *testing.T) {
	c := &config.Connection{
		Name:        "vpn1",
		Left:        "any",
		Right:       "203.0.0.1",
		RightId:     "gw.example.com",
		LeftSubnet:  "10.0.0.0/24",
		RightSubnet: "192.168.0.0/24,192.168.1.0/24",
		Proposals:   []string{"aes256-sha256-modp2048"},
		EspProposal: []string{"aes256-sha256"},
		Version:     1,
		Auto:        config.AutoRoute,
	}
	c.Correct()
	conn := Translate(c).Section("vpn1")

	assert.Equal(t, []string{"%any"}, conn.List("local_addrs"), "be the same.")
	assert.Equal(t, []string{"203.0.0.1"}, conn.List("remote_addrs"), "be the same.")
	assert.Equal(t, "1", conn.String("version"), "be the same.")
	assert.Equal(t, []string{"aes256-sha256-modp2048"}, conn.List("proposals"), "be the same.")
	assert.Equal(t, "gw.example.com", conn.Section("remote").String("id"), "be the same.")

	child := conn.Section("children").Section("vpn1")
	assert.Equal(t, []string{"10.0.0.0/24"}, child.List("local_ts"), "be the same.")
	assert.Equal(t, []string{"192.168.0.0/24", "192.168.1.0/24"}, child.List("remote_ts"), "be the same.")
	assert.Equal(t, []string{"aes256-sha256"}, child.List("esp_proposals"), "be the same.")
	assert.Equal(t, ActionNone, child.String("start_action"), "be the same.")

	c.Auto = config.AutoNone
	child = Translate(c).Section("vpn1").Section("children").Section("vpn1")
	assert.Equal(t, ActionNone, child.String("start_action"), "be the same.")
}
