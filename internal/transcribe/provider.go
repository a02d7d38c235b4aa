package transcribe

import (
	"context"

	"github.com/speakerlens/speakerlens/internal/transcript"
)

// Job status values reported by the provider. The orchestrator transitions on
// exactly "completed" and "error"; anything else means the job is still in
// flight.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// JobStatus is one poll's view of a remote transcription job. Utterances is
// populated only when Status is "completed".
type JobStatus struct {
	Status     string
	Error      string
	Utterances []transcript.Utterance
}

// Provider is the interface to a remote speech-to-text service with speaker
// diarization. Credentials are an opaque bearer string supplied per call.
type Provider interface {
	// Upload sends raw audio bytes and returns an opaque upload reference.
	Upload(ctx context.Context, audio []byte, credentials string) (string, error)

	// RequestTranscription starts a transcription job with speaker labels
	// enabled against a previously obtained upload reference and returns the
	// provider's job identifier.
	RequestTranscription(ctx context.Context, uploadURL, credentials string) (string, error)

	// GetStatus retrieves the current status of a transcription job.
	GetStatus(ctx context.Context, jobID, credentials string) (*JobStatus, error)
}
