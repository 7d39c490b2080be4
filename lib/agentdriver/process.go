// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentdriver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// MaxStderrBytes bounds the stderr tail kept for each process.
const MaxStderrBytes = 64 * 1024

// CommandSpec describes a process to spawn.
type CommandSpec struct {
	Binary string
	Args   []string
	Dir    string

	// ExtraEnv is appended to os.Environ().
	ExtraEnv []string

	// Stdin opens a pipe to the process's standard input. When false the
	// process reads from /dev/null.
	Stdin bool
}

// Process is a supervised child process. It runs in its own process
// group so that Kill reaches any grandchildren the agent spawned (shell
// tools, language servers).
type Process struct {
	command *exec.Cmd
	stdin   io.WriteCloser
	stderr  *tailBuffer

	stdinMutex sync.Mutex

	done     chan struct{}
	exitCode int
}

// Spawn starts the process described by spec. Every stdout line is
// passed to onLine from a single supervising goroutine, in order. When
// stdout reaches EOF the process is reaped and onExit is called once,
// from the same goroutine, with the exit code and the stderr tail.
//
// Returns a *SpawnError if the executable cannot be started.
func Spawn(spec CommandSpec, onLine func(line []byte), onExit func(exitCode int, stderr string)) (*Process, error) {
	command := exec.Command(spec.Binary, spec.Args...)
	command.Dir = spec.Dir
	command.Env = append(os.Environ(), spec.ExtraEnv...)
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stderr := &tailBuffer{limit: MaxStderrBytes}
	command.Stderr = stderr

	process := &Process{
		command: command,
		stderr:  stderr,
		done:    make(chan struct{}),
	}

	if spec.Stdin {
		stdin, err := command.StdinPipe()
		if err != nil {
			return nil, &SpawnError{Binary: spec.Binary, Err: fmt.Errorf("creating stdin pipe: %w", err)}
		}
		process.stdin = stdin
	}

	stdout, err := command.StdoutPipe()
	if err != nil {
		if process.stdin != nil {
			process.stdin.Close()
		}
		return nil, &SpawnError{Binary: spec.Binary, Err: fmt.Errorf("creating stdout pipe: %w", err)}
	}

	if err := command.Start(); err != nil {
		if process.stdin != nil {
			process.stdin.Close()
		}
		return nil, &SpawnError{Binary: spec.Binary, Err: err}
	}

	go process.supervise(stdout, onLine, onExit)
	return process, nil
}

func (process *Process) supervise(stdout io.Reader, onLine func([]byte), onExit func(int, string)) {
	// Read errors surface as a short stream; the exit code below is
	// what callers act on.
	_ = ReadLines(stdout, onLine)

	waitError := process.command.Wait()
	process.exitCode = exitCodeOf(waitError)
	close(process.done)

	if onExit != nil {
		onExit(process.exitCode, process.stderr.String())
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return exitError.ExitCode()
	}
	return -1
}

// Write writes p to the process's standard input.
func (process *Process) Write(p []byte) (int, error) {
	if process.stdin == nil {
		return 0, fmt.Errorf("agentdriver: process has no stdin pipe")
	}
	if process.Exited() {
		return 0, ErrNotStarted
	}
	process.stdinMutex.Lock()
	defer process.stdinMutex.Unlock()
	return process.stdin.Write(p)
}

// Kill sends SIGKILL to the process group. Safe to call after exit.
func (process *Process) Kill() error {
	if process.Exited() {
		return nil
	}
	pid := process.command.Process.Pid
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		// Fall back to the direct child if the group is gone.
		if killError := process.command.Process.Kill(); killError != nil && !errors.Is(killError, os.ErrProcessDone) {
			return fmt.Errorf("killing process %d: %w", pid, killError)
		}
	}
	return nil
}

// Done is closed after the process has been reaped.
func (process *Process) Done() <-chan struct{} { return process.done }

// Exited reports whether the process has been reaped.
func (process *Process) Exited() bool {
	select {
	case <-process.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code. Only meaningful after Done is closed.
func (process *Process) ExitCode() int {
	<-process.done
	return process.exitCode
}

// Stderr returns the stderr tail accumulated so far.
func (process *Process) Stderr() string { return process.stderr.String() }

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mutex sync.Mutex
	data  []byte
	limit int
}

func (buffer *tailBuffer) Write(p []byte) (int, error) {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	buffer.data = append(buffer.data, p...)
	if overflow := len(buffer.data) - buffer.limit; overflow > 0 {
		buffer.data = append(buffer.data[:0], buffer.data[overflow:]...)
	}
	return len(p), nil
}

func (buffer *tailBuffer) String() string {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return string(buffer.data)
}
