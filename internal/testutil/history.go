package testutil

import (
	"testing"

	"negma/internal/database"
)

// NewTestHistory creates an in-memory history database with migrations applied.
// It is closed when the test completes.
func NewTestHistory(t *testing.T) *database.SQLiteHistory {
	t.Helper()

	h, err := database.NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open history database: %v", err)
	}
	t.Cleanup(func() {
		h.Close()
	})
	return h
}
