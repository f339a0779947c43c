package swan

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/luscis/ipsecman/pkg/config"
	"github.com/luscis/ipsecman/pkg/libol"
	"github.com/luscis/ipsecman/pkg/vici"
)

// Initiator brings a loaded connection up or down. Up and Down return
// diagnostic output when there is any.
type Initiator interface {
	Name() string
	Up(ctx context.Context, name string) (string, error)
	Down(ctx context.Context, name string) (string, error)
}

// Caller is the part of a control session the manager needs.
type Caller interface {
	Call(command string, msg *vici.Section) (*vici.Section, error)
	Stream(command, event string, msg *vici.Section) ([]*vici.Section, error)
}

// ViciInitiator sends initiate and terminate over the control socket.
type ViciInitiator struct {
	Client Caller
	// Timeout in milliseconds, -1 to return once queued.
	Timeout int
}

func (v *ViciInitiator) Name() string {
	return config.ModeVici
}

func (v *ViciInitiator) request(name string) *vici.Section {
	return vici.NewSection().
		SetString("ike", name).
		SetString("timeout", strconv.Itoa(v.Timeout))
}

func (v *ViciInitiator) Up(_ context.Context, name string) (string, error) {
	_, err := v.Client.Call("initiate", v.request(name))
	return "", err
}

func (v *ViciInitiator) Down(_ context.Context, name string) (string, error) {
	_, err := v.Client.Call("terminate", v.request(name))
	return "", err
}

// CommandInitiator runs "<binary> up|down NAME", optionally through
// non-interactive sudo. The process group is killed at the deadline.
type CommandInitiator struct {
	Binary  string
	Sudo    bool
	Timeout time.Duration
	out     *libol.SubLogger
}

func NewCommandInitiator(c *config.Control) *CommandInitiator {
	return &CommandInitiator{
		Binary:  c.Binary,
		Sudo:    c.UseSudo(),
		Timeout: c.Deadline(),
		out:     libol.NewSubLogger("command"),
	}
}

func (c *CommandInitiator) Name() string {
	return config.ModeCommand
}

func (c *CommandInitiator) Args(action, name string) []string {
	args := []string{c.Binary, action, name}
	if c.Sudo {
		args = append([]string{"sudo", "-n"}, args...)
	}
	return args
}

func (c *CommandInitiator) run(ctx context.Context, action, name string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := c.Args(action, name)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)
	cmd.WaitDelay = time.Second

	if c.out != nil {
		c.out.Cmd("CommandInitiator.run: %s", strings.Join(args, " "))
	}
	err := cmd.Run()
	outStr := strings.TrimSpace(stdout.String())
	errStr := strings.TrimSpace(stderr.String())
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return outStr, &CommandTimeoutError{Args: args, Timeout: timeout, Stdout: outStr, Stderr: errStr}
	}
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return outStr, &CommandFailureError{Args: args, Code: code, Stdout: outStr, Stderr: errStr, Err: err}
	}
	return outStr, nil
}

func (c *CommandInitiator) Up(ctx context.Context, name string) (string, error) {
	return c.run(ctx, "up", name)
}

func (c *CommandInitiator) Down(ctx context.Context, name string) (string, error) {
	return c.run(ctx, "down", name)
}
