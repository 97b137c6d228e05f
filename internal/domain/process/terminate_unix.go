//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func shellArgs(shellPath string) []string {
	if shellPath == "" {
		shellPath = "/bin/sh"
	}
	return []string{shellPath, "-c"}
}

// shellCommand puts the child in its own process group so terminate can
// reach everything it spawns.
func shellCommand(shell []string, command string) *exec.Cmd {
	args := append(append([]string{}, shell[1:]...), command)
	cmd := exec.Command(shell[0], args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// terminate sends SIGTERM to the process group, falling back to the leader.
// A process that is already gone is not an error.
func terminate(p *os.Process) error {
	if pgid, err := syscall.Getpgid(p.Pid); err == nil && pgid == p.Pid {
		if err := syscall.Kill(-pgid, syscall.SIGTERM); err == nil {
			return nil
		}
	}

	err := p.Signal(syscall.SIGTERM)
	if err == nil || errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
