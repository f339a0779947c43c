package swan

import (
	"errors"
	"fmt"
	"testing"

	"github.com/luscis/ipsecman/pkg/config"
	"github.com/luscis/ipsecman/pkg/vici"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	rejected := &vici.CommandError{Command: "load-conn", Message: "bad"}
	cases := []struct {
		err  error
		kind Kind
	}{
		{nil, KindNone},
		{errors.New("other"), KindUnknown},
		{&vici.ProtocolError{Op: "decode", Reason: "x"}, KindProtocol},
		{&vici.UnavailableError{Socket: "s", Op: "dial", Err: errors.New("refused")}, KindUnavailable},
		{vici.ErrClosed, KindUnavailable},
		{pkgerrors.Wrapf(rejected, "load %s", "vpn1"), KindRejected},
		{&config.ValidationError{Field: "name", Reason: "empty"}, KindValidation},
		{&PartialUpdateError{Name: "a", NewName: "b", Err: rejected}, KindPartialUpdate},
		{&CommandTimeoutError{Args: []string{"ipsec"}}, KindCommandTimeout},
		{fmt.Errorf("start: %w", &CommandFailureError{Args: []string{"ipsec"}, Code: 1}), KindCommandFailure},
		{&NotFoundError{Name: "a"}, KindNotFound},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, KindOf(c.err), "be the same.")
	}
}

func TestNewResult(t *testing.T) {
	r := NewResult("create", "vpn1", "", nil)
	assert.True(t, r.Ok(), "ok")
	assert.Equal(t, "create", r.Action, "be the same.")

	err := &PartialUpdateError{Name: "vpn1", NewName: "vpn1b", Err: &vici.CommandError{Command: "load-conn", Message: "bad"}}
	r = NewResult("edit", "vpn1", "", err)
	assert.False(t, r.Ok(), "failed")
	assert.Equal(t, "PartialUpdateFailure", r.Kind, "be the same.")
	assert.Equal(t, "vpn1 unloaded but vpn1b not created: vici: load-conn rejected: bad", r.Message, "be the same.")
}
