//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// SetProcessGroup puts the command in its own process group so the whole tree can be signalled.
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// SignalGroup sends sig to the process group led by pid.
func SignalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	return syscall.Kill(-pid, sig)
}

// Terminate asks the group to stop.
func Terminate(pid int) error { return SignalGroup(pid, syscall.SIGTERM) }

// Kill forcibly stops the group.
func Kill(pid int) error { return SignalGroup(pid, syscall.SIGKILL) }
