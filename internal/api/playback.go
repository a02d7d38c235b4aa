package api

import (
	"encoding/json"
	"net/http"

	"github.com/speakerlens/speakerlens/internal/playback"
	"github.com/speakerlens/speakerlens/internal/storage"
)

type PlaybackHandler struct {
	controller *playback.Controller
	store      *storage.LocalStore
}

func NewPlaybackHandler(controller *playback.Controller, store *storage.LocalStore) *PlaybackHandler {
	return &PlaybackHandler{controller: controller, store: store}
}

type playRequest struct {
	AudioID string `json:"audio_id"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// PlaybackState is the externally observable playback state: a single
// (rangeKey, playing) pair.
type PlaybackState struct {
	RangeKey string `json:"range_key,omitempty"`
	Playing  bool   `json:"playing"`
}

// Play starts (or toggles off) bounded playback of a stored recording. The
// controller absorbs playback failures; the response always reflects the
// resulting state.
func (h *PlaybackHandler) Play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EndMS < req.StartMS || req.StartMS < 0 {
		WriteError(w, http.StatusBadRequest, "invalid range: need 0 <= start_ms <= end_ms")
		return
	}

	// Unknown audio IDs degrade to a no-op play, same as a missing source.
	source := h.store.Path(req.AudioID)
	h.controller.Play(source, req.StartMS, req.EndMS)

	h.writeState(w)
}

// Stop unconditionally halts playback.
func (h *PlaybackHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.controller.Stop()
	h.writeState(w)
}

// State returns the current playback state.
func (h *PlaybackHandler) State(w http.ResponseWriter, r *http.Request) {
	h.writeState(w)
}

func (h *PlaybackHandler) writeState(w http.ResponseWriter) {
	key, playing := h.controller.State()
	WriteJSON(w, http.StatusOK, PlaybackState{RangeKey: key, Playing: playing})
}
