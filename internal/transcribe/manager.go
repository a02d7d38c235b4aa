package transcribe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/speakerlens/speakerlens/internal/metrics"
	"github.com/speakerlens/speakerlens/internal/transcript"
)

// PublishFunc is a callback for publishing job lifecycle events.
type PublishFunc func(eventType string, payload map[string]any)

// CompletedFunc is a hook invoked after a submission completes and its result
// has been accepted as current.
type CompletedFunc func(jobID, filename string, res *transcript.Result)

// ManagerOptions configures the job manager.
type ManagerOptions struct {
	Provider     Provider
	Credentials  string
	PollInterval time.Duration
	MaxPolls     int
	Publish      PublishFunc   // optional
	OnCompleted  CompletedFunc // optional
	Log          zerolog.Logger
}

// JobSnapshot is the externally visible state of the current submission.
type JobSnapshot struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
	State    State  `json:"state"`
	Error    string `json:"error,omitempty"`
}

// Manager owns the caller side of the job lifecycle: which submission is
// current, the transcript it produced, and the per-speaker display names.
//
// Each Submit bumps a generation counter and runs a fresh orchestrator in the
// background. A previous in-flight job is not cancelled at the network layer;
// its eventual resolution is compared against the current generation and
// discarded if a newer submission has started since.
type Manager struct {
	opts ManagerOptions
	log  zerolog.Logger

	mu         sync.Mutex
	generation uint64
	job        JobSnapshot
	result     *transcript.Result
	names      *transcript.NameMap
}

func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		opts:  opts,
		log:   opts.Log,
		job:   JobSnapshot{State: StateIdle},
		names: transcript.NewNameMap(),
	}
}

// Submit starts a new transcription job for the given audio and returns its
// job ID. The previous result and all speaker names are discarded immediately;
// the job itself runs in the background.
func (m *Manager) Submit(filename string, audio []byte) string {
	jobID := uuid.NewString()

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.job = JobSnapshot{ID: jobID, Filename: filename, State: StateIdle}
	m.result = nil
	m.names.Reset()
	m.mu.Unlock()

	metrics.JobsSubmittedTotal.Inc()
	m.publish("job_state", map[string]any{"job_id": jobID, "state": string(StateIdle)})

	orch := NewOrchestrator(OrchestratorOptions{
		Provider:     m.opts.Provider,
		PollInterval: m.opts.PollInterval,
		MaxPolls:     m.opts.MaxPolls,
		OnState: func(s State) {
			m.applyState(gen, jobID, s)
		},
		Log: m.log.With().Str("job_id", jobID).Logger(),
	})

	go func() {
		res, err := orch.Submit(context.Background(), audio, m.opts.Credentials)
		m.resolve(gen, jobID, filename, res, err)
	}()

	return jobID
}

// Job returns a snapshot of the current submission's state.
func (m *Manager) Job() JobSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job
}

// Result returns the current transcript, or nil if none has completed.
func (m *Manager) Result() *transcript.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// SetSpeakerName assigns a display name to a provider speaker label.
func (m *Manager) SetSpeakerName(speaker transcript.SpeakerID, name string) {
	m.names.Set(speaker, name)
}

// SpeakerNames returns the current speaker display names.
func (m *Manager) SpeakerNames() map[transcript.SpeakerID]string {
	return m.names.All()
}

// applyState records a non-terminal state transition, ignoring transitions
// from superseded submissions. Terminal states are recorded by resolve, which
// also knows the outcome.
func (m *Manager) applyState(gen uint64, jobID string, s State) {
	if s.Terminal() {
		return
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.job.State = s
	m.mu.Unlock()

	m.publish("job_state", map[string]any{"job_id": jobID, "state": string(s)})
}

// resolve applies a finished submission's outcome, unless a newer submission
// has started since, in which case the outcome is discarded.
func (m *Manager) resolve(gen uint64, jobID, filename string, res *transcript.Result, err error) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.log.Debug().Str("job_id", jobID).Msg("discarding stale job resolution")
		return
	}

	switch {
	case err == nil:
		m.job.State = StateCompleted
		m.result = res
	case errors.Is(err, ErrTimeout):
		m.job.State = StateTimedOut
		m.job.Error = err.Error()
	default:
		m.job.State = StateFailed
		m.job.Error = err.Error()
	}
	snap := m.job
	m.mu.Unlock()

	if err != nil {
		metrics.JobsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		m.log.Warn().Err(err).Str("job_id", jobID).Msg("transcription job failed")
		m.publish("job_state", map[string]any{
			"job_id": jobID, "state": string(snap.State), "error": snap.Error,
		})
		return
	}

	metrics.JobsCompletedTotal.Inc()
	m.log.Info().
		Str("job_id", jobID).
		Int("utterances", len(res.Utterances)).
		Int("speakers", len(res.Speakers())).
		Msg("transcription job completed")

	m.publish("job_state", map[string]any{"job_id": jobID, "state": string(StateCompleted)})
	m.publish("transcript", map[string]any{
		"job_id":     jobID,
		"utterances": len(res.Utterances),
		"speakers":   len(res.Speakers()),
	})

	if m.opts.OnCompleted != nil {
		m.opts.OnCompleted(jobID, filename, res)
	}
}

func (m *Manager) publish(eventType string, payload map[string]any) {
	if m.opts.Publish != nil {
		m.opts.Publish(eventType, payload)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrUpload):
		return "upload"
	case errors.Is(err, ErrSubmit):
		return "submit"
	case errors.Is(err, ErrRemoteProcessing):
		return "remote"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "other"
	}
}
