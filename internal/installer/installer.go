// Package installer runs the external cluster installer executable.
//
// The installer performs the actual node bring-up and teardown. It is run
// as a blocking subprocess with no timeout; a create can take well over
// half an hour.
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
)

// Operation is the installer sub command.
type Operation string

const (
	Create  Operation = "create"
	Destroy Operation = "destroy"
)

// ImageOverrideEnv carries the boot image override to the installer.
const ImageOverrideEnv = "OPENSHIFT_INSTALL_OS_IMAGE_OVERRIDE"

// Outcome describes a finished installer run.
type Outcome struct {
	ExitCode  int
	Operation Operation
}

// ExecutionError is returned when the installer exits non-zero or cannot
// be started. ExitCode is -1 when the process never ran.
type ExecutionError struct {
	Outcome
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("installer %s failed with exit code %d: %v", e.Operation, e.ExitCode, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Runner invokes the installer executable at Path.
type Runner struct {
	Path   string
	Stdout io.Writer
	Stderr io.Writer

	// Env is the base environment of the child. Nil means os.Environ().
	Env []string
}

// Run executes "<Path> <op> cluster --dir <dir>" and waits for it to exit.
// A non-empty imageOverride is passed through ImageOverrideEnv in the
// child environment only.
//
// The process is not bound to ctx: once started, it always runs to
// completion. ctx is only checked before starting.
func (r *Runner) Run(ctx context.Context, op Operation, dir, imageOverride string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(r.Path, string(op), "cluster", "--dir", dir) //nolint:gosec // installer path is operator supplied
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	env := r.Env
	if env == nil {
		env = os.Environ()
	}
	if imageOverride != "" {
		env = append(append([]string(nil), env...), ImageOverrideEnv+"="+imageOverride)
	}
	cmd.Env = env

	err := cmd.Run()
	if err == nil {
		return nil
	}

	outcome := Outcome{ExitCode: -1, Operation: op}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
	}
	return &ExecutionError{Outcome: outcome, Err: err}
}

var commitPattern = regexp.MustCompile(`(?m)^.*commit (\w+)\s*$`)

// Commit returns the source commit the installer at exe was built from,
// as reported by "<exe> version".
func Commit(ctx context.Context, exe string) (string, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, "version") //nolint:gosec // installer path is operator supplied
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run %s version: %w", exe, err)
	}

	match := commitPattern.FindStringSubmatch(stdout.String())
	if match == nil {
		return "", fmt.Errorf("no commit found in output of %s version", exe)
	}
	return match[1], nil
}
