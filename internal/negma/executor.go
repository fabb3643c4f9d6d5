package negma

import "context"

// Result is the outcome of an external command that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunOptions controls how an external command's output is handled.
type RunOptions struct {
	// Capture collects stdout without echoing it to the terminal.
	// Stderr is always captured; it is echoed unless Capture is set.
	Capture bool
}

// Executor runs external commands synchronously.
// A nonzero exit is reported through Result.ExitCode with a nil error;
// an error means the command could not be started.
type Executor interface {
	Run(ctx context.Context, cmd Command, opts RunOptions) (Result, error)
}

// Editor opens a file in the operator's editor and blocks until it exits.
type Editor interface {
	Edit(ctx context.Context, path string) error
}

// PrivilegeChecker reports whether the process may run root-only actions.
type PrivilegeChecker interface {
	IsPrivileged() bool
}
