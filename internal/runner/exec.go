package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"negma/internal/negma"
)

// OSExecutor runs commands as child processes.
type OSExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewOSExecutor creates an executor attached to the process's standard streams.
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes cmd and waits for it. Stderr is always captured; unless
// opts.Capture is set, stdout and stderr are also streamed to the terminal.
func (e *OSExecutor) Run(ctx context.Context, cmd negma.Command, opts negma.RunOptions) (negma.Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Stdin = e.Stdin

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	if opts.Capture {
		c.Stdout = &stdout
		c.Stderr = &stderr
	} else {
		c.Stdout = e.Stdout
		c.Stderr = io.MultiWriter(e.Stderr, &stderr)
	}

	err := c.Run()
	result := negma.Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return result, err
	}
	return result, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1
	}
	return exitErr.ExitCode()
}
