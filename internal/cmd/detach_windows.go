//go:build windows

package cmd

import (
	"errors"
	"os/exec"
)

func detach(*exec.Cmd) error {
	return errors.New("background mode is not supported on Windows; run the daemon in the foreground")
}
