package swan

import (
	"strconv"

	"github.com/luscis/ipsecman/pkg/config"
	"github.com/luscis/ipsecman/pkg/vici"
)

const (
	ActionTrap = "trap"
	ActionNone = "none"
)

func startAction(auto string) string {
	if auto == config.AutoStart {
		return ActionTrap
	}
	return ActionNone
}

func authSection(id string) *vici.Section {
	s := vici.NewSection().SetString("auth", "psk")
	if id != "" {
		s.SetString("id", id)
	}
	return s
}

// Translate builds the load-conn message for a corrected connection. The
// single child is named after the connection.
func Translate(c *config.Connection) *vici.Section {
	child := vici.NewSection().
		SetList("local_ts", c.LocalTS()...).
		SetList("remote_ts", c.RemoteTS()...)
	if len(c.EspProposal) > 0 {
		child.SetList("esp_proposals", c.EspProposal...)
	}
	child.SetString("start_action", startAction(c.Auto))

	conn := vici.NewSection().
		SetList("local_addrs", c.Left).
		SetList("remote_addrs", c.Right).
		SetString("version", strconv.Itoa(c.Version))
	if len(c.Proposals) > 0 {
		conn.SetList("proposals", c.Proposals...)
	}
	conn.SetSection("local", authSection(c.LeftId)).
		SetSection("remote", authSection(c.RightId)).
		SetSection("children", vici.NewSection().SetSection(c.Name, child))

	return vici.NewSection().SetSection(c.Name, conn)
}
