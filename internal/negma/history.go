package negma

import (
	"database/sql"
	"fmt"
	"time"
)

// Operation statuses stored in the history database.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation is one dispatched action recorded in the history database.
type Operation struct {
	ID         int64
	Operation  string
	Profile    string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	ExitCode   int
}

// History records dispatched actions.
type History interface {
	// StartOperation inserts a running operation and returns it with its ID.
	StartOperation(operation, profile, parameters string, startedAt time.Time) (*Operation, error)

	// FinishOperation marks an operation as finished.
	FinishOperation(id int64, status string, exitCode int, finishedAt time.Time) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	Close() error
}

// GetHistory returns the most recent operations, newest first.
func (s *NegmaService) GetHistory(limit int) ([]*Operation, error) {
	ops, err := s.history.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// track records fn as an operation in the history database.
func (s *NegmaService) track(operation, profile, parameters string, fn func() error) error {
	op, err := s.history.StartOperation(operation, profile, parameters, s.clock.Now())
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}

	runErr := fn()

	status := StatusSuccess
	if runErr != nil {
		status = StatusError
	}
	if err := s.history.FinishOperation(op.ID, status, ExitCode(runErr), s.clock.Now()); err != nil {
		s.logger.Warn("failed to finish operation record", "id", op.ID, "error", err)
	}
	return runErr
}
