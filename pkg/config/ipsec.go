package config

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/miekg/dns"
)

const (
	Wildcard  = "%any"
	AllRoutes = "0.0.0.0/0"
)

const (
	AutoStart = "start"
	AutoRoute = "route"
	AutoNone  = "none"
)

var connName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidationError is an intent field rejected before any daemon call.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Connection is the desired shape of one pre-shared-key tunnel.
type Connection struct {
	Name        string   `json:"name" yaml:"name"`
	Left        string   `json:"local,omitempty" yaml:"local,omitempty"`
	LeftId      string   `json:"localid,omitempty" yaml:"localid,omitempty"`
	LeftSubnet  string   `json:"localsubnet,omitempty" yaml:"localsubnet,omitempty"`
	Right       string   `json:"remote,omitempty" yaml:"remote,omitempty"`
	RightId     string   `json:"remoteid,omitempty" yaml:"remoteid,omitempty"`
	RightSubnet string   `json:"remotesubnet,omitempty" yaml:"remotesubnet,omitempty"`
	Proposals   []string `json:"ike,omitempty" yaml:"ike,omitempty"`
	EspProposal []string `json:"esp,omitempty" yaml:"esp,omitempty"`
	Version     int      `json:"version,omitempty" yaml:"version,omitempty"`
	Auto        string   `json:"auto,omitempty" yaml:"auto,omitempty"`
}

func endpoint(value string) string {
	value = strings.TrimSpace(value)
	switch value {
	case "", "any", Wildcard:
		return Wildcard
	}
	return value
}

func subnet(value string) string {
	items := splitList(value)
	if len(items) == 0 {
		return AllRoutes
	}
	return strings.Join(items, ",")
}

func proposals(values []string) []string {
	var items []string
	for _, value := range values {
		items = append(items, splitList(value)...)
	}
	return items
}

// Correct fills omitted fields with their defaults.
func (c *Connection) Correct() {
	c.Name = strings.TrimSpace(c.Name)
	c.Left = endpoint(c.Left)
	c.Right = endpoint(c.Right)
	c.LeftSubnet = subnet(c.LeftSubnet)
	c.RightSubnet = subnet(c.RightSubnet)
	c.Proposals = proposals(c.Proposals)
	c.EspProposal = proposals(c.EspProposal)
	if c.Version == 0 {
		c.Version = 2
	}
	if c.Auto == "" {
		c.Auto = AutoStart
	}
	c.Auto = strings.ToLower(c.Auto)
}

func (c *Connection) Id() string {
	return c.Name
}

func (c *Connection) LocalTS() []string {
	return splitList(c.LeftSubnet)
}

func (c *Connection) RemoteTS() []string {
	return splitList(c.RightSubnet)
}

func validEndpoint(value string) bool {
	if value == Wildcard {
		return true
	}
	if _, err := netip.ParseAddr(value); err == nil {
		return true
	}
	if _, err := netip.ParsePrefix(value); err == nil {
		return true
	}
	if _, ok := dns.IsDomainName(value); ok && !strings.ContainsAny(value, " /%") {
		return true
	}
	return false
}

func validSelector(value string) bool {
	if _, err := netip.ParsePrefix(value); err == nil {
		return true
	}
	if _, err := netip.ParseAddr(value); err == nil {
		return true
	}
	return false
}

// Validate checks a corrected connection.
func (c *Connection) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(c.Name) > 255 || !connName.MatchString(c.Name) {
		return &ValidationError{Field: "name", Value: c.Name, Reason: "only letters, digits, '.', '_' and '-'"}
	}
	if !validEndpoint(c.Left) {
		return &ValidationError{Field: "local", Value: c.Left, Reason: "not an address or hostname"}
	}
	if !validEndpoint(c.Right) {
		return &ValidationError{Field: "remote", Value: c.Right, Reason: "not an address or hostname"}
	}
	for _, ts := range c.LocalTS() {
		if !validSelector(ts) {
			return &ValidationError{Field: "localsubnet", Value: ts, Reason: "not a subnet"}
		}
	}
	for _, ts := range c.RemoteTS() {
		if !validSelector(ts) {
			return &ValidationError{Field: "remotesubnet", Value: ts, Reason: "not a subnet"}
		}
	}
	for _, p := range append(append([]string{}, c.Proposals...), c.EspProposal...) {
		if strings.ContainsAny(p, " \t") {
			return &ValidationError{Field: "proposal", Value: p, Reason: "must not contain spaces"}
		}
	}
	if c.Version != 1 && c.Version != 2 {
		return &ValidationError{Field: "version", Value: fmt.Sprint(c.Version), Reason: "must be 1 or 2"}
	}
	switch c.Auto {
	case AutoStart, AutoRoute, AutoNone:
	default:
		return &ValidationError{Field: "auto", Value: c.Auto, Reason: "must be start, route or none"}
	}
	return nil
}

type Connections struct {
	Items []*Connection `json:"connections" yaml:"connections"`
}

func (s *Connections) Correct() {
	for _, c := range s.Items {
		c.Correct()
	}
}

func (s *Connections) Find(name string) (*Connection, int) {
	for index, obj := range s.Items {
		if obj.Id() == name {
			return obj, index
		}
	}
	return nil, -1
}
