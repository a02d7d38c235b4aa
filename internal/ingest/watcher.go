package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/speakerlens/speakerlens/internal/metrics"
)

// Submitter is the intake side of the transcription manager.
type Submitter interface {
	Submit(filename string, audio []byte) string
}

// Watcher monitors a drop directory for new audio files and submits them for
// transcription. This is an alternative intake to the HTTP upload endpoint.
type Watcher struct {
	submitter Submitter
	watchDir  string
	log       zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	// Debounce: coalesce rapid Create+Write events on the same file and let
	// the writer finish before we read.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesSubmitted atomic.Int64
	filesSkipped   atomic.Int64
}

func NewWatcher(submitter Submitter, watchDir string, log zerolog.Logger) *Watcher {
	return &Watcher{
		submitter:      submitter,
		watchDir:       watchDir,
		log:            log.With().Str("component", "watcher").Logger(),
		done:           make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start begins watching the drop directory.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw

	if err := fw.Add(w.watchDir); err != nil {
		fw.Close()
		return err
	}

	w.log.Info().Str("watch_dir", w.watchDir).Msg("file watcher started")
	go w.watchLoop()
	return nil
}

// Stop closes the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("files_submitted", w.filesSubmitted.Load()).
		Int64("files_skipped", w.filesSkipped.Load()).
		Msg("file watcher stopped")
}

// Stats returns intake counters for the health endpoint.
func (w *Watcher) Stats() (submitted, skipped int64) {
	return w.filesSubmitted.Load(), w.filesSkipped.Load()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !IsAudioFile(event.Name) {
				continue
			}
			w.scheduleSubmit(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleSubmit debounces file submission by 500ms so that a file still being
// written is read only once, after the writes settle.
func (w *Watcher) scheduleSubmit(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.submitFile(path)
	})
}

func (w *Watcher) submitFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to read dropped file")
		w.filesSkipped.Add(1)
		metrics.WatcherFilesTotal.WithLabelValues("read_error").Inc()
		return
	}
	if len(data) == 0 {
		w.filesSkipped.Add(1)
		metrics.WatcherFilesTotal.WithLabelValues("empty").Inc()
		return
	}

	jobID := w.submitter.Submit(filepath.Base(path), data)
	w.filesSubmitted.Add(1)
	metrics.WatcherFilesTotal.WithLabelValues("submitted").Inc()
	w.log.Info().Str("path", path).Str("job_id", jobID).Msg("dropped file submitted")
}

// IsAudioFile reports whether a path has a recognized audio extension.
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3", ".m4a", ".flac", ".ogg", ".aac", ".webm":
		return true
	}
	return false
}
