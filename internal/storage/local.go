package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps uploaded recordings on the local filesystem, keyed by
// audio ID plus original extension.
type LocalStore struct {
	audioDir string
}

// NewLocalStore creates the store, ensuring the audio directory exists.
func NewLocalStore(audioDir string) (*LocalStore, error) {
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", audioDir, err)
	}
	return &LocalStore{audioDir: audioDir}, nil
}

// Save writes audio data under the given key. The write is atomic: temp file
// plus rename.
func (s *LocalStore) Save(key string, data []byte) error {
	path := filepath.Join(s.audioDir, key)

	tmp, err := os.CreateTemp(s.audioDir, ".audio-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Path returns the filesystem path for a stored key, or "" if it does not
// exist. Keys are validated against path traversal.
func (s *LocalStore) Path(key string) string {
	if key == "" || key != filepath.Base(key) {
		return ""
	}
	full := filepath.Join(s.audioDir, key)
	if _, err := os.Stat(full); err != nil {
		return ""
	}
	return full
}

// Open returns a reader for a stored key.
func (s *LocalStore) Open(key string) (io.ReadCloser, error) {
	path := s.Path(key)
	if path == "" {
		return nil, fmt.Errorf("audio %q not found", key)
	}
	return os.Open(path)
}

// Dir returns the audio directory path.
func (s *LocalStore) Dir() string { return s.audioDir }
