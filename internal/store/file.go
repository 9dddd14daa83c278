package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/logger"
)

// FileStore keeps the collection in a JSON file. Every Replace first copies
// the current file to <path>.bak, then swaps the new content in atomically.
type FileStore struct {
	path string
	log  logger.Logger
}

func NewFileStore(path string, log logger.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

func (s *FileStore) Path() string       { return s.path }
func (s *FileStore) BackupPath() string { return s.path + ".bak" }

// Load returns an empty collection when no file exists yet. A primary file
// that cannot be parsed is skipped in favour of the .bak copy.
func (s *FileStore) Load(ctx context.Context) ([]bookmark.Bookmark, error) {
	list, err := s.read(s.path)
	if err == nil {
		return list, nil
	}

	primaryMissing := errors.Is(err, fs.ErrNotExist)
	if !primaryMissing {
		s.log.Warn("bookmark file unreadable, trying backup",
			logger.String("path", s.path), logger.Error(err))
	}

	backupList, bakErr := s.read(s.BackupPath())
	switch {
	case bakErr == nil:
		if primaryMissing {
			s.log.Warn("bookmark file missing, restored from backup", logger.String("path", s.BackupPath()))
		}
		return backupList, nil
	case primaryMissing && errors.Is(bakErr, fs.ErrNotExist):
		return []bookmark.Bookmark{}, nil
	case primaryMissing:
		return nil, fmt.Errorf("failed to load %s: %w", s.BackupPath(), bakErr)
	default:
		return nil, fmt.Errorf("failed to load %s: %w", s.path, err)
	}
}

func (s *FileStore) Replace(ctx context.Context, list []bookmark.Bookmark) error {
	data, err := encode(list)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	if err := s.rotate(); err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0600))
	if err != nil {
		return fmt.Errorf("create pending bookmark file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			s.log.Debug("cleanup pending bookmark file", logger.Error(err))
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write bookmarks: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace bookmark file: %w", err)
	}

	s.log.Debug("bookmarks saved", logger.String("path", s.path), logger.Int("count", len(list)))
	return nil
}

// rotate copies a parseable primary file to .bak. A corrupt primary is left
// alone so it never overwrites a good backup.
func (s *FileStore) rotate() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read current bookmarks: %w", err)
	}
	if _, err := decode(data); err != nil {
		s.log.Warn("not rotating unreadable bookmark file", logger.String("path", s.path), logger.Error(err))
		return nil
	}
	if err := renameio.WriteFile(s.BackupPath(), data, 0600); err != nil {
		return fmt.Errorf("write bookmark backup: %w", err)
	}
	return nil
}

func (s *FileStore) read(path string) ([]bookmark.Bookmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(data)
}
