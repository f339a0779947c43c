//go:build !linux
// +build !linux

package swan

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {
}
