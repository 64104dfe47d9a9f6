package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"k8s.io/utils/exec"
)

const powershellBinary = "powershell.exe"

var powershellArgs = []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command"}

// Runner executes host tools and PowerShell scripts.
type Runner struct {
	exec   exec.Interface
	logger *log.Entry
}

func New(executor exec.Interface, logger *log.Entry) *Runner {
	return &Runner{exec: executor, logger: logger}
}

// CommandError describes a command that exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}

	return fmt.Sprintf("%s failed: %v: %s", e.Command, e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Run runs a command and returns its combined output.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, error) {
	r.logger.WithField("command", name).Tracef("Running %s %s", name, strings.Join(args, " "))

	out, err := r.exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return string(out), &CommandError{Command: name, ExitCode: exitCode(err), Output: string(out), Err: err}
	}

	return string(out), nil
}

// Stream runs a command writing its stdout to w. The exit code is returned even on failure
// since some tools, robocopy among them, use non-zero codes for success.
func (r *Runner) Stream(ctx context.Context, w io.Writer, name string, args ...string) (int, error) {
	r.logger.WithField("command", name).Tracef("Running %s %s", name, strings.Join(args, " "))

	cmd := r.exec.CommandContext(ctx, name, args...)
	cmd.SetStdout(w)
	cmd.SetStderr(w)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	code := exitCode(err)
	if code < 0 {
		return code, &CommandError{Command: name, ExitCode: code, Err: err}
	}

	return code, nil
}

// PowerShell runs a script and returns its trimmed output.
func (r *Runner) PowerShell(ctx context.Context, script string) (string, error) {
	args := append(append([]string{}, powershellArgs...), script)

	out, err := r.Run(ctx, powershellBinary, args...)

	return strings.TrimSpace(out), err
}

// Quote renders s as a single-quoted PowerShell string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func exitCode(err error) int {
	var exitErr exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		return exitErr.ExitStatus()
	}

	return -1
}
