// Package handoff performs the irreversible final step of an approved
// escalation: replacing the current process image with the target command.
// There is no fork. Forking would leave a parent alive with elevated
// rights after the child starts, widening the privilege window for no
// benefit; exec replaces this process outright, so no broker code can run
// at elevated privilege after the target starts.
package handoff

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// ErrExecFailed indicates the process image replacement did not happen.
// The caller must exit nonzero immediately: falling through to further
// logic at elevated privilege is never acceptable.
var ErrExecFailed = errors.New("exec failed")

// Error carries the command whose exec failed.
type Error struct {
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("handoff to %q failed: %v", e.Command, e.Err)
}

// Is enables errors.Is(err, ErrExecFailed) comparisons.
func (e *Error) Is(target error) bool {
	return errors.Is(target, ErrExecFailed)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Executor replaces the current process image with a target command.
type Executor interface {
	// Exec never returns on success. On failure it returns an *Error.
	Exec(command string, args []string) error
}

// SyscallExecutor performs the handoff with execve(2).
type SyscallExecutor struct {
	logger *slog.Logger
}

// NewExecutor returns the real process-replacement executor.
func NewExecutor(logger *slog.Logger) *SyscallExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyscallExecutor{logger: logger}
}

// Exec resolves command on PATH and replaces the current process image
// with it. The argument vector passed to the target is command followed by
// args; the environment is inherited unchanged.
func (e *SyscallExecutor) Exec(command string, args []string) error {
	path, err := exec.LookPath(command)
	if err != nil {
		return &Error{Command: command, Err: fmt.Errorf("%w: %v", ErrExecFailed, err)}
	}

	argv := append([]string{command}, args...)
	e.logger.Info("replacing process image", "command", command, "path", path, "pid", os.Getpid())

	// Does not return on success.
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return &Error{Command: command, Err: fmt.Errorf("%w: %v", ErrExecFailed, err)}
	}

	// Unreachable: exec either replaced the image or returned an error.
	return &Error{Command: command, Err: ErrExecFailed}
}
