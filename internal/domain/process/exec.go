package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/id"
)

// DefaultEnv is appended to the server environment for every command so
// tools keep colored output and npm stays quiet.
var DefaultEnv = []string{
	"FORCE_COLOR=1",
	"NPM_CONFIG_AUDIT=false",
	"NPM_CONFIG_FUND=false",
}

// SpawnError reports a command that could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// SpawnerConfig configures how commands are launched.
type SpawnerConfig struct {
	// ShellPath overrides the platform shell (/bin/sh or cmd).
	ShellPath string
	// WaitDelay bounds how long Wait blocks on output pipes after the
	// process itself has exited.
	WaitDelay time.Duration
	// Env is appended after the server environment and DefaultEnv.
	Env []string
}

// Spawner starts shell commands and registers them.
type Spawner struct {
	registry  *Registry
	shell     []string
	env       []string
	waitDelay time.Duration
}

// NewSpawner creates a spawner that registers into reg.
func NewSpawner(reg *Registry, cfg SpawnerConfig) *Spawner {
	env := append(os.Environ(), DefaultEnv...)
	env = append(env, cfg.Env...)
	return &Spawner{
		registry:  reg,
		shell:     shellArgs(cfg.ShellPath),
		env:       env,
		waitDelay: cfg.WaitDelay,
	}
}

// Spec describes one command to run.
type Spec struct {
	Command string
	Dir     string
	Owner   id.ConnectionID
	Stdout  io.Writer
	Stderr  io.Writer
}

// Execution is a started, registered process.
type Execution struct {
	PID     int
	Command string

	cmd      *exec.Cmd
	life     *Lifecycle
	registry *Registry
}

// Exit describes how an execution ended.
type Exit struct {
	// Code is the exit status, -1 when the process was killed by a signal.
	Code int
	// State is StateExited or StateTerminated.
	State State
	// Err is set for wait failures other than a non-zero exit.
	Err error
}

// Start runs cs.Command through the shell and registers the process. Each
// write to Stdout or Stderr carries one chunk of output in emission order.
func (s *Spawner) Start(cs Spec) (*Execution, error) {
	cmd := shellCommand(s.shell, cs.Command)
	cmd.Dir = cs.Dir
	cmd.Env = s.env
	cmd.Stdout = cs.Stdout
	cmd.Stderr = cs.Stderr
	cmd.WaitDelay = s.waitDelay

	life := NewLifecycle()
	if err := cmd.Start(); err != nil {
		life.Transition(StateSpawnFailed)
		return nil, &SpawnError{Command: cs.Command, Err: err}
	}
	life.Transition(StateRunning)

	pid := s.registry.add(&Record{
		PID:       cmd.Process.Pid,
		Process:   cmd.Process,
		Dir:       cs.Dir,
		Owner:     cs.Owner,
		Command:   cs.Command,
		StartedAt: time.Now(),
		life:      life,
	})

	return &Execution{
		PID:      pid,
		Command:  cs.Command,
		cmd:      cmd,
		life:     life,
		registry: s.registry,
	}, nil
}

// Wait blocks until the process exits and its output is drained, then
// removes it from the registry.
func (e *Execution) Wait() Exit {
	err := e.cmd.Wait()
	e.registry.Remove(e.PID)

	exit := Exit{Code: -1}
	if e.cmd.ProcessState != nil {
		exit.Code = e.cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		exit.Err = err
	}

	e.life.Transition(StateExited)
	exit.State = e.life.State()
	return exit
}

// State returns the execution's lifecycle state.
func (e *Execution) State() State {
	return e.life.State()
}
