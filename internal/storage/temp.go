package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/speakerlens/speakerlens/internal/playback"
)

// TempOpener returns an OpenSourceFunc that materializes a per-session
// streamable handle for an audio file: a hard link into dir when possible, a
// copy otherwise. The release func removes the handle.
func TempOpener(dir string) playback.OpenSourceFunc {
	return func(source string) (string, func(), error) {
		if _, err := os.Stat(source); err != nil {
			return "", nil, fmt.Errorf("stat source: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}

		handle := filepath.Join(dir, uuid.NewString()+filepath.Ext(source))
		if err := os.Link(source, handle); err != nil {
			// Cross-device or unsupported: fall back to a copy.
			if err := copyFile(source, handle); err != nil {
				return "", nil, err
			}
		}

		release := func() { os.Remove(handle) }
		return handle, release, nil
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create handle: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
