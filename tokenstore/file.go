package tokenstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var _ Store = (*File)(nil)

// File is a Store persisted to a single file. The file is read on every
// Token call, so a login in one process is seen by the next.
//
// The file holds the raw token followed by an optional newline and is
// written with mode 0600. A missing file means "no token".
type File struct {
	path string

	// mu serializes writers within this process.
	mu sync.Mutex
}

// NewFile creates a File store at path. The file is not touched until
// the first call.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file the token is stored in.
func (f *File) Path() string {
	return f.path
}

// Token implements Store. Read errors other than a missing file are
// reported as "no token".
func (f *File) Token() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	return strings.TrimRight(string(data), "\r\n"), true
}

// SetToken implements Store. The write goes through a temporary file and
// a rename so readers never see a partial token.
func (f *File) SetToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("tokenstore: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("tokenstore: write %s: %w", f.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(token + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("tokenstore: write %s: %w", f.path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("tokenstore: chmod %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("tokenstore: write %s: %w", f.path, err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("tokenstore: write %s: %w", f.path, err)
	}
	return nil
}

// RemoveToken implements Store.
func (f *File) RemoveToken() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenstore: remove %s: %w", f.path, err)
	}
	return nil
}

// HasToken implements Store.
func (f *File) HasToken() bool {
	_, ok := f.Token()
	return ok
}
