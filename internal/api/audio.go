package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/speakerlens/speakerlens/internal/storage"
)

type AudioHandler struct {
	store   *storage.LocalStore
	archive *storage.S3Archive // may be nil
}

func NewAudioHandler(store *storage.LocalStore, archive *storage.S3Archive) *AudioHandler {
	return &AudioHandler{store: store, archive: archive}
}

// ServeAudio streams a stored recording. http.ServeFile handles Range
// requests, so clients can seek without downloading the whole file. When the
// local copy is gone but an archive is configured, the client is redirected
// to a presigned archive URL instead.
func (h *AudioHandler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path := h.store.Path(id)
	if path != "" {
		http.ServeFile(w, r, path)
		return
	}

	if h.archive != nil {
		url, err := h.archive.PresignURL(r.Context(), id)
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("audio_id", id).Msg("presign failed")
			WriteError(w, http.StatusNotFound, "audio not found")
			return
		}
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	WriteError(w, http.StatusNotFound, "audio not found")
}
