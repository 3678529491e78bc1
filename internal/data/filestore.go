package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rajapam/broker/internal/core"
	apperrors "github.com/rajapam/broker/internal/errors"
)

// FileDescriptorStore persists transparent-mode connection descriptors on the
// local filesystem. Files live under a single directory; the session id keys
// the lookup and the server-supplied filename is preserved for downloads.
type FileDescriptorStore struct {
	dir string
}

// NewFileDescriptorStore creates a new FileDescriptorStore rooted at dir.
func NewFileDescriptorStore(dir string) (*FileDescriptorStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("descriptor directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create descriptor directory: %w", err)
	}
	return &FileDescriptorStore{dir: dir}, nil
}

// Save writes the descriptor under "<sessionID>_<filename>". The filename is
// sanitized to its base name so a hostile server cannot traverse out of the
// store directory.
func (s *FileDescriptorStore) Save(ctx context.Context, params core.SaveDescriptorParams) error {
	if params.SessionID == "" {
		return errors.New("session id is required")
	}
	if params.Filename == "" {
		return errors.New("filename is required")
	}
	if params.Content == nil {
		return errors.New("content is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, params.SessionID+"_"+filepath.Base(params.Filename))

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create descriptor file: %w", err)
	}

	if _, err := io.Copy(file, params.Content); err != nil {
		_ = file.Close()
		return fmt.Errorf("write descriptor file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close descriptor file: %w", err)
	}
	return nil
}

// Open returns the descriptor content for a session and the original filename
// it was saved under.
func (s *FileDescriptorStore) Open(ctx context.Context, sessionID string) (io.ReadCloser, string, error) {
	if sessionID == "" {
		return nil, "", errors.New("session id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, sessionID+"_*"))
	if err != nil {
		return nil, "", fmt.Errorf("list descriptor files: %w", err)
	}
	if len(matches) == 0 {
		return nil, "", apperrors.NotFoundf("no descriptor for session %s", sessionID)
	}

	path := matches[0]
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open descriptor file: %w", err)
	}

	filename := strings.TrimPrefix(filepath.Base(path), sessionID+"_")
	return file, filename, nil
}
