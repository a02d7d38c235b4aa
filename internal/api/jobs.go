package api

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/speakerlens/speakerlens/internal/storage"
	"github.com/speakerlens/speakerlens/internal/transcribe"
)

// maxUploadBytes bounds a single recording upload (100 MB).
const maxUploadBytes = 100 << 20

type JobsHandler struct {
	manager *transcribe.Manager
	store   *storage.LocalStore
	archive *storage.S3Archive // may be nil
	log     zerolog.Logger
}

func NewJobsHandler(manager *transcribe.Manager, store *storage.LocalStore, archive *storage.S3Archive, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{manager: manager, store: store, archive: archive, log: log}
}

// SubmitJob accepts a multipart audio upload and starts a transcription job.
// The previous job's eventual result, if still in flight, is superseded.
func (h *JobsHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "multipart field 'file' required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "empty audio upload")
		return
	}

	audioID := uuid.NewString() + filepath.Ext(header.Filename)
	if err := h.store.Save(audioID, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("audio save failed")
		WriteError(w, http.StatusInternalServerError, "could not store audio")
		return
	}

	if h.archive != nil {
		contentType := mime.TypeByExtension(filepath.Ext(header.Filename))
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := h.archive.Archive(ctx, audioID, data, contentType); err != nil {
				h.log.Warn().Err(err).Str("audio_id", audioID).Msg("S3 archive failed")
			}
		}()
	}

	jobID := h.manager.Submit(header.Filename, data)

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   jobID,
		"audio_id": audioID,
	})
}

// CurrentJob returns the state of the current submission.
func (h *JobsHandler) CurrentJob(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.manager.Job())
}
