package storage

import (
	"io"
	"os"
	"testing"
)

func TestLocalStore_SaveAndOpen(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	if err := s.Save("abc.wav", []byte("audio-data")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r, err := s.Open("abc.wav")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	data, _ := io.ReadAll(r)
	if string(data) != "audio-data" {
		t.Errorf("read %q, want audio-data", data)
	}
}

func TestLocalStore_PathMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	if got := s.Path("nope.wav"); got != "" {
		t.Errorf("Path = %q for missing key, want empty", got)
	}
}

func TestLocalStore_PathRejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	for _, key := range []string{"../etc/passwd", "a/b.wav", ""} {
		if got := s.Path(key); got != "" {
			t.Errorf("Path(%q) = %q, want empty", key, got)
		}
	}
}

func TestTempOpener_HandleLifecycle(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if err := store.Save("rec.wav", []byte("pcm")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	open := TempOpener(t.TempDir())
	handle, release, err := open(store.Path("rec.wav"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	data, err := os.ReadFile(handle)
	if err != nil {
		t.Fatalf("handle not readable: %v", err)
	}
	if string(data) != "pcm" {
		t.Errorf("handle content = %q, want pcm", data)
	}

	release()
	if _, err := os.Stat(handle); !os.IsNotExist(err) {
		t.Error("handle still exists after release")
	}
}

func TestTempOpener_MissingSource(t *testing.T) {
	open := TempOpener(t.TempDir())
	if _, _, err := open("/nonexistent/rec.wav"); err == nil {
		t.Fatal("expected error for missing source")
	}
}
