package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/speakerlens/speakerlens/internal/metrics"
	"github.com/speakerlens/speakerlens/internal/transcript"
)

// State of a transcription job as the orchestrator drives it. Once a terminal
// state (Completed, Failed, TimedOut) is reached, no further transition occurs.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
)

// Terminal reports whether s is a terminal job state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

// Polling defaults. The 1s interval and 120 attempt budget bound end-to-end
// latency at roughly two minutes past submission.
const (
	DefaultPollInterval = time.Second
	DefaultMaxPolls     = 120
)

// OrchestratorOptions configures a single-job orchestrator.
type OrchestratorOptions struct {
	Provider     Provider
	PollInterval time.Duration // defaults to DefaultPollInterval
	MaxPolls     int           // defaults to DefaultMaxPolls
	OnState      func(State)   // optional state-transition callback
	Log          zerolog.Logger
}

// Orchestrator drives one submission through upload, submit, and poll to a
// terminal state. It holds no cross-call state; each Submit is an independent
// run of the state machine.
type Orchestrator struct {
	provider Provider
	interval time.Duration
	maxPolls int
	onState  func(State)
	log      zerolog.Logger
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	return &Orchestrator{
		provider: opts.Provider,
		interval: opts.PollInterval,
		maxPolls: opts.MaxPolls,
		onState:  opts.OnState,
		log:      opts.Log,
	}
}

// PollInterval returns the configured poll interval.
func (o *Orchestrator) PollInterval() time.Duration { return o.interval }

// MaxPolls returns the configured poll attempt budget.
func (o *Orchestrator) MaxPolls() int { return o.maxPolls }

// Submit uploads audio, requests a speaker-labeled transcription, and polls
// until the job reaches a terminal state. On success the provider's utterance
// order is preserved as-is; on failure no partial transcript is returned.
// Empty credentials fail with ErrAuth before any network call.
func (o *Orchestrator) Submit(ctx context.Context, audio []byte, credentials string) (*transcript.Result, error) {
	if credentials == "" {
		o.transition(StateFailed)
		return nil, fmt.Errorf("no credentials configured: %w", ErrAuth)
	}

	o.transition(StateUploading)
	uploadURL, err := o.provider.Upload(ctx, audio, credentials)
	if err != nil {
		o.transition(StateFailed)
		if errors.Is(err, ErrAuth) {
			return nil, fmt.Errorf("upload: %w", err)
		}
		return nil, fmt.Errorf("upload: %w: %w", ErrUpload, err)
	}

	o.transition(StateSubmitting)
	jobID, err := o.provider.RequestTranscription(ctx, uploadURL, credentials)
	if err != nil {
		o.transition(StateFailed)
		if errors.Is(err, ErrAuth) {
			return nil, fmt.Errorf("submit: %w", err)
		}
		return nil, fmt.Errorf("submit: %w: %w", ErrSubmit, err)
	}

	o.transition(StatePolling)
	o.log.Debug().Str("job_id", jobID).Msg("polling transcription job")

	for attempt := 0; attempt < o.maxPolls; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				o.transition(StateFailed)
				return nil, ctx.Err()
			case <-time.After(o.interval):
			}
		}

		metrics.PollAttemptsTotal.Inc()
		status, err := o.provider.GetStatus(ctx, jobID, credentials)
		if err != nil {
			if errors.Is(err, ErrAuth) {
				o.transition(StateFailed)
				return nil, fmt.Errorf("poll: %w", err)
			}
			// Transient poll failure: the attempt still counts against the
			// budget, the job itself may well be fine.
			o.log.Warn().Err(err).Str("job_id", jobID).Int("attempt", attempt+1).Msg("poll failed")
			continue
		}

		switch status.Status {
		case StatusCompleted:
			o.transition(StateCompleted)
			return &transcript.Result{Utterances: status.Utterances}, nil
		case StatusError:
			o.transition(StateFailed)
			return nil, fmt.Errorf("%w: %s", ErrRemoteProcessing, status.Error)
		}
	}

	o.transition(StateTimedOut)
	return nil, fmt.Errorf("job %s still pending after %d polls: %w", jobID, o.maxPolls, ErrTimeout)
}

func (o *Orchestrator) transition(s State) {
	if o.onState != nil {
		o.onState(s)
	}
}
