package marker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileName is the marker file name inside the config root.
const FileName = "last_gc_marker"

// FileMarkerStore keeps the last GC time as decimal Unix seconds in a text file.
type FileMarkerStore struct {
	path string
}

// NewFileMarkerStore creates a marker store backed by the file at path.
func NewFileMarkerStore(path string) *FileMarkerStore {
	return &FileMarkerStore{path: path}
}

// ReadLastRun returns the recorded time, or 0 if the marker does not exist.
func (m *FileMarkerStore) ReadLastRun() (int64, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading marker %s: %w", m.path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	epoch, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decoding marker %s: %w", m.path, err)
	}
	return epoch, nil
}

// WriteLastRun records epochSeconds, creating parent directories as needed.
// The content is written with a single write call.
func (m *FileMarkerStore) WriteLastRun(epochSeconds int64) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}
	data := []byte(strconv.FormatInt(epochSeconds, 10) + "\n")
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("writing marker %s: %w", m.path, err)
	}
	return nil
}
