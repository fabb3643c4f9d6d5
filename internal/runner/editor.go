package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// DefaultEditor is used when neither the config nor the environment names one.
const DefaultEditor = "nano"

// ResolveEditor picks the editor command: the configured one, then $VISUAL,
// then $EDITOR, then DefaultEditor.
func ResolveEditor(configured string, getenv func(string) string) string {
	for _, candidate := range []string{configured, getenv("VISUAL"), getenv("EDITOR")} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return DefaultEditor
}

// OSEditor launches an interactive editor attached to the terminal.
type OSEditor struct {
	// Command may carry arguments, e.g. "code --wait".
	Command string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewOSEditor creates an editor for command attached to the standard streams.
func NewOSEditor(command string) *OSEditor {
	return &OSEditor{Command: command, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Edit blocks until the editor exits.
func (e *OSEditor) Edit(ctx context.Context, path string) error {
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return errors.New("no editor configured")
	}

	args := append(fields[1:], path)
	c := exec.CommandContext(ctx, fields[0], args...)
	c.Stdin = e.Stdin
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("editor %s exited with code %d", fields[0], exitErr.ExitCode())
		}
		return fmt.Errorf("launching editor %s: %w", fields[0], err)
	}
	return nil
}
