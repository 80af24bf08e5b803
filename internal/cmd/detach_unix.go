//go:build !windows

package cmd

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in a new session so it outlives the terminal.
func detach(cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return nil
}
