package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"negma/internal/negma"
)

// IndexFileName is the backup index inside the backup directory.
const IndexFileName = "index.toml"

const timestampFormat = "20060102T150405Z"

// index is the on-disk form of the backup index.
type index struct {
	Backups []negma.BackupEntry `toml:"backups"`
}

// FileStore keeps timestamped copies of files in a directory, indexed by
// index.toml in the same directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save copies source to <dir>/<base>.<timestamp>.bak and records it in the index.
func (s *FileStore) Save(id, source string, createdAt time.Time) (*negma.BackupEntry, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	name := fmt.Sprintf("%s.%s.bak", filepath.Base(source), createdAt.UTC().Format(timestampFormat))
	dest := filepath.Join(s.dir, name)

	size, err := copyFile(source, dest)
	if err != nil {
		return nil, err
	}

	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}

	entry := negma.BackupEntry{
		ID:        id,
		Source:    source,
		Path:      dest,
		CreatedAt: createdAt.UTC(),
		Size:      size,
	}
	idx.Backups = append(idx.Backups, entry)
	if err := s.writeIndex(idx); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns recorded backups, newest first.
func (s *FileStore) List() ([]negma.BackupEntry, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	entries := idx.Backups
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *FileStore) indexPath() string {
	return filepath.Join(s.dir, IndexFileName)
}

func (s *FileStore) readIndex() (*index, error) {
	var idx index
	if _, err := toml.DecodeFile(s.indexPath(), &idx); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &index{}, nil
		}
		return nil, fmt.Errorf("reading backup index: %w", err)
	}
	return &idx, nil
}

func (s *FileStore) writeIndex(idx *index) error {
	tmp, err := os.CreateTemp(s.dir, IndexFileName+".*")
	if err != nil {
		return fmt.Errorf("creating backup index: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(idx); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding backup index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing backup index: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.indexPath()); err != nil {
		return fmt.Errorf("replacing backup index: %w", err)
	}
	return nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return 0, fmt.Errorf("copying to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", dst, err)
	}
	return n, nil
}
