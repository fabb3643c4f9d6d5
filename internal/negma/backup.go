package negma

import (
	"fmt"
	"time"
)

// BackupEntry describes one saved copy of a configuration file.
type BackupEntry struct {
	ID        string    `toml:"id"`
	Source    string    `toml:"source"`
	Path      string    `toml:"path"`
	CreatedAt time.Time `toml:"created_at"`
	Size      int64     `toml:"size"`
}

// BackupStore saves copies of files and keeps an index of them.
type BackupStore interface {
	// Save copies source into the store, recording it under id at createdAt.
	Save(id, source string, createdAt time.Time) (*BackupEntry, error)

	// List returns recorded backups, newest first.
	List() ([]BackupEntry, error)
}

// BackupFile copies path into the backup store.
func (s *NegmaService) BackupFile(path string) (*BackupEntry, error) {
	var entry *BackupEntry
	err := s.track("home backup", HomeProfileKind.String(), path, func() error {
		var err error
		entry, err = s.backups.Save(s.idgen.New(), path, s.clock.Now())
		if err != nil {
			return fmt.Errorf("backing up %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file backed up", "source", path, "backup", entry.Path)
	return entry, nil
}

// ListBackups returns recorded backups, newest first.
func (s *NegmaService) ListBackups() ([]BackupEntry, error) {
	entries, err := s.backups.List()
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return entries, nil
}
