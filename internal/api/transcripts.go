package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/speakerlens/speakerlens/internal/database"
	"github.com/speakerlens/speakerlens/internal/transcribe"
	"github.com/speakerlens/speakerlens/internal/transcript"
)

type TranscriptsHandler struct {
	manager *transcribe.Manager
	db      *database.DB // may be nil
}

func NewTranscriptsHandler(manager *transcribe.Manager, db *database.DB) *TranscriptsHandler {
	return &TranscriptsHandler{manager: manager, db: db}
}

// TranscriptResponse is the current transcript with speaker display names.
type TranscriptResponse struct {
	Utterances []transcript.Utterance          `json:"utterances"`
	Speakers   map[transcript.SpeakerID]string `json:"speakers"`
}

// CurrentTranscript returns the current transcript, or 404 if no submission
// has completed yet.
func (h *TranscriptsHandler) CurrentTranscript(w http.ResponseWriter, r *http.Request) {
	res := h.manager.Result()
	if res == nil {
		WriteError(w, http.StatusNotFound, "no transcript available")
		return
	}

	names := h.manager.SpeakerNames()
	speakers := make(map[transcript.SpeakerID]string)
	for _, sp := range res.Speakers() {
		speakers[sp] = names[sp]
	}

	WriteJSON(w, http.StatusOK, TranscriptResponse{
		Utterances: res.Utterances,
		Speakers:   speakers,
	})
}

// Excerpts returns the per-speaker representative utterance sets for the
// current transcript.
func (h *TranscriptsHandler) Excerpts(w http.ResponseWriter, r *http.Request) {
	res := h.manager.Result()
	if res == nil {
		WriteError(w, http.StatusNotFound, "no transcript available")
		return
	}
	WriteJSON(w, http.StatusOK, transcript.SelectExcerpts(res.Utterances))
}

type speakerNameRequest struct {
	Name string `json:"name"`
}

// SetSpeakerName assigns a display name to a provider speaker label.
func (h *TranscriptsHandler) SetSpeakerName(w http.ResponseWriter, r *http.Request) {
	speaker := chi.URLParam(r, "speaker")
	if speaker == "" {
		WriteError(w, http.StatusBadRequest, "speaker label required")
		return
	}

	var req speakerNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.manager.SetSpeakerName(transcript.SpeakerID(speaker), req.Name)
	w.WriteHeader(http.StatusNoContent)
}

// ListTranscripts returns persisted transcript summaries, newest first.
// Requires the database to be configured.
func (h *TranscriptsHandler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcript persistence not configured")
		return
	}

	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.db.ListTranscripts(r.Context(), p.Limit, p.Offset)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list transcripts failed")
		WriteError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rows == nil {
		rows = []database.TranscriptRow{}
	}
	WriteJSON(w, http.StatusOK, rows)
}

// GetTranscript returns one persisted transcript with utterances.
func (h *TranscriptsHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcript persistence not configured")
		return
	}

	row, err := h.db.GetTranscript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("get transcript failed")
		WriteError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if row == nil {
		WriteError(w, http.StatusNotFound, "transcript not found")
		return
	}
	WriteJSON(w, http.StatusOK, row)
}
