package transcribe

import "errors"

// Classified failures of a transcription job. Callers check them with
// errors.Is; each wrapped error also carries the underlying cause.
var (
	// ErrAuth: credentials missing, or rejected by the provider at the upload
	// or submit stage.
	ErrAuth = errors.New("missing or rejected credentials")

	// ErrUpload: the provider rejected the raw audio bytes.
	ErrUpload = errors.New("audio upload rejected")

	// ErrSubmit: the provider rejected the transcription request.
	ErrSubmit = errors.New("transcription request rejected")

	// ErrRemoteProcessing: the provider reported a terminal error status for
	// the job.
	ErrRemoteProcessing = errors.New("provider reported transcription failure")

	// ErrTimeout: the job did not reach a terminal state within the polling
	// budget.
	ErrTimeout = errors.New("transcription timed out")
)
