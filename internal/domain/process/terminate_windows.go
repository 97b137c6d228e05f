//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

func shellArgs(shellPath string) []string {
	if shellPath == "" {
		shellPath = "cmd"
	}
	return []string{shellPath, "/C"}
}

// shellCommand hands the raw command line to cmd.exe, which does its own
// quoting.
func shellCommand(shell []string, command string) *exec.Cmd {
	cmd := exec.Command(shell[0])
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine:       strings.Join(shell, " ") + " " + command,
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
	return cmd
}

// terminate kills the whole child tree with taskkill, falling back to
// killing the direct child.
func terminate(p *os.Process) error {
	out, err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(p.Pid)).CombinedOutput()
	if err == nil {
		return nil
	}
	if killErr := p.Kill(); killErr == nil || errors.Is(killErr, os.ErrProcessDone) {
		return nil
	}
	return fmt.Errorf("taskkill pid %d: %w: %s", p.Pid, err, strings.TrimSpace(string(out)))
}
