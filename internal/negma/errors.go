package negma

import (
	"errors"
	"fmt"
	"strings"
)

// Process exit codes. These values are part of the CLI contract and must not change.
const (
	ExitOK         = 0 // success
	ExitFailure    = 1 // I/O or unexpected error
	ExitValidation = 2 // bad arguments, unknown generation, nothing to roll back to
	ExitExternal   = 3 // external command failed or its output was not recognized
	ExitPrivilege  = 4 // action requires root
)

var (
	// ErrEmptyListing means a non-empty listing produced no parsable lines,
	// i.e. the external tool's output format was not recognized.
	ErrEmptyListing = errors.New("generation listing not recognized: no line could be parsed")

	// ErrNoPreviousGeneration means the current generation is the oldest one.
	ErrNoPreviousGeneration = errors.New("no generation precedes the current one")

	// ErrNoCurrentGeneration means no generation in the listing is marked current.
	ErrNoCurrentGeneration = errors.New("no generation is marked as current")
)

// GenerationNotFoundError is returned when an explicitly requested generation does not exist.
type GenerationNotFoundError struct {
	ID int
}

func (e *GenerationNotFoundError) Error() string {
	return fmt.Sprintf("generation %d not found", e.ID)
}

// ExternalCommandError reports a nonzero exit from an external command.
type ExternalCommandError struct {
	Action   string
	ExitCode int
	Stderr   string
}

func (e *ExternalCommandError) Error() string {
	msg := fmt.Sprintf("%s failed with exit code %d", e.Action, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// InsufficientPrivilegeError is returned before running an action that needs root.
type InsufficientPrivilegeError struct {
	Action string
}

func (e *InsufficientPrivilegeError) Error() string {
	return fmt.Sprintf("%s requires superuser privileges", e.Action)
}

// UsageError wraps invalid command-line input.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// NewUsageError formats a UsageError.
func NewUsageError(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by the service or CLI to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var privErr *InsufficientPrivilegeError
	if errors.As(err, &privErr) {
		return ExitPrivilege
	}

	var extErr *ExternalCommandError
	if errors.As(err, &extErr) || errors.Is(err, ErrEmptyListing) {
		return ExitExternal
	}

	var notFound *GenerationNotFoundError
	var usage *UsageError
	switch {
	case errors.As(err, &notFound),
		errors.As(err, &usage),
		errors.Is(err, ErrNoPreviousGeneration),
		errors.Is(err, ErrNoCurrentGeneration):
		return ExitValidation
	}

	return ExitFailure
}
