//go:build !unix

package process

import (
	"os"
	"os/exec"
)

// SetProcessGroup is a no-op where process groups are unavailable.
func SetProcessGroup(cmd *exec.Cmd) {}

// Terminate kills the process; descendants are not reached.
func Terminate(pid int) error { return Kill(pid) }

// Kill forcibly stops the process.
func Kill(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
