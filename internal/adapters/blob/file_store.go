package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidName is returned for names that would escape the backup directory
var ErrInvalidName = errors.New("invalid backup name")

// FileStore keeps backups as files in one directory
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates the backup directory if needed
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// ReadByName returns the named backup
func (s *FileStore) ReadByName(ctx context.Context, name string) ([]byte, bool, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read backup: %w", err)
	}
	return data, true, nil
}

// WriteNew writes a backup, refusing to overwrite an existing one
func (s *FileStore) WriteNew(ctx context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	s.logger.Debug("Backup written", zap.String("path", path), zap.Int("size", len(data)))
	return nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}
