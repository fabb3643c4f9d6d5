package negma

import (
	"fmt"
	"time"
)

const secondsPerDay = 86400

// MarkerStore persists the time of the last successful garbage collection.
type MarkerStore interface {
	// ReadLastRun returns the last GC time in Unix seconds, or 0 if GC never ran.
	// An error means the marker exists but could not be read or decoded.
	ReadLastRun() (int64, error)

	// WriteLastRun records the last GC time in Unix seconds.
	WriteLastRun(epochSeconds int64) error
}

// AutoGCScheduler decides whether garbage collection is due.
type AutoGCScheduler struct {
	marker MarkerStore
	logger Logger
}

// NewAutoGCScheduler creates a scheduler backed by the given marker store.
func NewAutoGCScheduler(marker MarkerStore, logger Logger) *AutoGCScheduler {
	return &AutoGCScheduler{marker: marker, logger: logger}
}

// ShouldRunAutoGC reports whether at least thresholdDays have passed since the
// last recorded GC. A threshold of 0 disables auto-GC. If the marker cannot be
// read, GC is reported as not due and the read error is returned as a warning.
func (s *AutoGCScheduler) ShouldRunAutoGC(thresholdDays int, now time.Time) (bool, error) {
	if thresholdDays <= 0 {
		return false, nil
	}

	last, err := s.marker.ReadLastRun()
	if err != nil {
		s.logger.Warn("gc marker unreadable, skipping auto gc", "error", err)
		return false, fmt.Errorf("reading gc marker: %w", err)
	}

	elapsed := now.Unix() - last
	due := elapsed/secondsPerDay >= int64(thresholdDays)
	s.logger.Debug("auto gc check", "last_run", last, "elapsed_seconds", elapsed, "threshold_days", thresholdDays, "due", due)
	return due, nil
}

// RecordRun stores now as the last GC time. It is called after every
// successful GC, manual or automatic, so a manual GC also resets the timer.
func (s *AutoGCScheduler) RecordRun(now time.Time) error {
	if err := s.marker.WriteLastRun(now.Unix()); err != nil {
		return fmt.Errorf("recording gc run: %w", err)
	}
	return nil
}
