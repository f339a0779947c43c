package swan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luscis/ipsecman/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, body string) string {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	file := filepath.Join(t.TempDir(), "ipsec")
	require.Nil(t, os.WriteFile(file, []byte("#!/bin/sh\n"+body), 0700), "notExist")
	return file
}

func TestCommandInitiatorArgs(t *testing.T) {
	sudo := true
	c := NewCommandInitiator(&config.Control{Binary: "/usr/sbin/ipsec", Sudo: &sudo, Timeout: 5})
	assert.Equal(t, []string{"sudo", "-n", "/usr/sbin/ipsec", "up", "vpn1"}, c.Args("up", "vpn1"), "be the same.")
	assert.Equal(t, 5*time.Second, c.Timeout, "be the same.")
	assert.Equal(t, config.ModeCommand, c.Name(), "be the same.")

	c.Sudo = false
	assert.Equal(t, []string{"/usr/sbin/ipsec", "down", "vpn1"}, c.Args("down", "vpn1"), "be the same.")
}

func TestCommandInitiatorRun(t *testing.T) {
	c := &CommandInitiator{
		Binary:  script(t, "echo \"$1 $2\"\necho notice >&2\n"),
		Timeout: 2 * time.Second,
	}
	out, err := c.Up(context.Background(), "vpn1")
	assert.Nil(t, err, "notExist")
	assert.Equal(t, "up vpn1", out, "be the same.")

	out, err = c.Down(context.Background(), "vpn1")
	assert.Nil(t, err, "notExist")
	assert.Equal(t, "down vpn1", out, "be the same.")
}

func TestCommandInitiatorFailure(t *testing.T) {
	c := &CommandInitiator{
		Binary:  script(t, "echo 'no config named vpn1'\necho denied >&2\nexit 3\n"),
		Timeout: 2 * time.Second,
	}
	out, err := c.Up(context.Background(), "vpn1")
	assert.Equal(t, KindCommandFailure, KindOf(err), "be the same.")
	assert.Equal(t, "no config named vpn1", out, "be the same.")
	var failure *CommandFailureError
	if assert.ErrorAs(t, err, &failure) {
		assert.Equal(t, 3, failure.Code, "be the same.")
		assert.Equal(t, "denied", failure.Stderr, "be the same.")
	}
	r := NewResult("start", "vpn1", out, err)
	assert.Equal(t, "no config named vpn1\ndenied", r.Output, "be the same.")
}

func TestCommandInitiatorTimeout(t *testing.T) {
	c := &CommandInitiator{
		Binary:  script(t, "echo waiting\nsleep 10\n"),
		Timeout: 300 * time.Millisecond,
	}
	start := time.Now()
	_, err := c.Up(context.Background(), "vpn1")
	assert.Equal(t, KindCommandTimeout, KindOf(err), "be the same.")
	assert.True(t, time.Since(start) < 5*time.Second, "killed")
}
