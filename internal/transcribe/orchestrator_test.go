package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/speakerlens/speakerlens/internal/transcript"
)

// fakeProvider scripts a poll status sequence and counts calls.
type fakeProvider struct {
	mu sync.Mutex

	uploadErr error
	submitErr error

	// statuses returned by successive GetStatus calls; the last entry repeats.
	statuses   []JobStatus
	statusErr  error
	utterances []transcript.Utterance

	uploads    int
	submits    int
	statusGets int
}

func (f *fakeProvider) Upload(ctx context.Context, audio []byte, credentials string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://upload.test/ref", nil
}

func (f *fakeProvider) RequestTranscription(ctx context.Context, uploadURL, credentials string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-1", nil
}

func (f *fakeProvider) GetStatus(ctx context.Context, jobID, credentials string) (*JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	i := f.statusGets
	f.statusGets++
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	st := f.statuses[i]
	return &st, nil
}

func (f *fakeProvider) calls() (uploads, submits, statusGets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, f.submits, f.statusGets
}

// processingThen builds a status script of n "processing" entries followed by
// the given terminal status.
func processingThen(n int, terminal JobStatus) []JobStatus {
	script := make([]JobStatus, 0, n+1)
	for i := 0; i < n; i++ {
		script = append(script, JobStatus{Status: StatusProcessing})
	}
	return append(script, terminal)
}

func newTestOrchestrator(p Provider, states *[]State) *Orchestrator {
	opts := OrchestratorOptions{
		Provider:     p,
		PollInterval: time.Millisecond,
		Log:          zerolog.Nop(),
	}
	if states != nil {
		opts.OnState = func(s State) { *states = append(*states, s) }
	}
	return NewOrchestrator(opts)
}

func TestOrchestrator_Defaults(t *testing.T) {
	o := NewOrchestrator(OrchestratorOptions{Provider: &fakeProvider{}, Log: zerolog.Nop()})
	if o.PollInterval() != time.Second {
		t.Errorf("PollInterval = %v, want 1s", o.PollInterval())
	}
	if o.MaxPolls() != 120 {
		t.Errorf("MaxPolls = %d, want 120", o.MaxPolls())
	}
}

func TestOrchestrator_EmptyCredentialsFailFast(t *testing.T) {
	p := &fakeProvider{}
	o := newTestOrchestrator(p, nil)

	_, err := o.Submit(context.Background(), []byte("audio"), "")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}

	uploads, submits, gets := p.calls()
	if uploads != 0 || submits != 0 || gets != 0 {
		t.Errorf("network calls observed (%d/%d/%d), want none before auth check", uploads, submits, gets)
	}
}

func TestOrchestrator_UploadRejected(t *testing.T) {
	p := &fakeProvider{uploadErr: fmt.Errorf("status 500")}
	o := newTestOrchestrator(p, nil)

	_, err := o.Submit(context.Background(), []byte("audio"), "key")
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("err = %v, want ErrUpload", err)
	}

	_, submits, _ := p.calls()
	if submits != 0 {
		t.Errorf("submit called %d times after failed upload, want 0", submits)
	}
}

func TestOrchestrator_AuthRejectedAtUpload(t *testing.T) {
	p := &fakeProvider{uploadErr: fmt.Errorf("provider: %w", ErrAuth)}
	o := newTestOrchestrator(p, nil)

	_, err := o.Submit(context.Background(), []byte("audio"), "bad-key")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if errors.Is(err, ErrUpload) {
		t.Error("credential rejection must classify as ErrAuth, not ErrUpload")
	}
}

func TestOrchestrator_SubmitRejected(t *testing.T) {
	p := &fakeProvider{submitErr: fmt.Errorf("status 400")}
	o := newTestOrchestrator(p, nil)

	_, err := o.Submit(context.Background(), []byte("audio"), "key")
	if !errors.Is(err, ErrSubmit) {
		t.Fatalf("err = %v, want ErrSubmit", err)
	}
}

func TestOrchestrator_CompletesAfterProcessing(t *testing.T) {
	utts := []transcript.Utterance{
		{Speaker: "A", Start: 0, End: 1200, Text: "hello"},
		{Speaker: "B", Start: 1200, End: 2400, Text: "hi there"},
	}
	p := &fakeProvider{
		statuses: processingThen(3, JobStatus{Status: StatusCompleted, Utterances: utts}),
	}
	var states []State
	o := newTestOrchestrator(p, &states)

	res, err := o.Submit(context.Background(), []byte("audio"), "key")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(res.Utterances) != 2 {
		t.Fatalf("utterances = %d, want 2", len(res.Utterances))
	}
	// Provider order must be preserved as-is.
	if res.Utterances[0].Text != "hello" || res.Utterances[1].Text != "hi there" {
		t.Errorf("utterance order changed: %+v", res.Utterances)
	}

	want := []State{StateUploading, StateSubmitting, StatePolling, StateCompleted}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestOrchestrator_CompletesOnFinalAttempt(t *testing.T) {
	p := &fakeProvider{
		statuses: processingThen(119, JobStatus{Status: StatusCompleted}),
	}
	o := newTestOrchestrator(p, nil)

	_, err := o.Submit(context.Background(), []byte("audio"), "key")
	if err != nil {
		t.Fatalf("Submit after 119 processing polls: %v", err)
	}

	_, _, gets := p.calls()
	if gets != 120 {
		t.Errorf("GetStatus called %d times, want 120", gets)
	}
}

func TestOrchestrator_TimesOutAfterBudget(t *testing.T) {
	p := &fakeProvider{
		statuses: []JobStatus{{Status: StatusProcessing}},
	}
	var states []State
	o := newTestOrchestrator(p, &states)

	_, err := o.Submit(context.Background(), []byte("audio"), "key")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	_, _, gets := p.calls()
	if gets != 120 {
		t.Errorf("GetStatus called %d times, want exactly 120", gets)
	}
	if states[len(states)-1] != StateTimedOut {
		t.Errorf("final state = %v, want timed_out", states[len(states)-1])
	}
}

func TestOrchestrator_RemoteErrorFailsImmediately(t *testing.T) {
	p := &fakeProvider{
		statuses: []JobStatus{{Status: StatusError, Error: "file corrupted"}},
	}
	o := newTestOrchestrator(p, nil)

	_, err := o.Submit(context.Background(), []byte("audio"), "key")
	if !errors.Is(err, ErrRemoteProcessing) {
		t.Fatalf("err = %v, want ErrRemoteProcessing", err)
	}

	_, _, gets := p.calls()
	if gets != 1 {
		t.Errorf("GetStatus called %d times, want 1 (no polling after terminal error)", gets)
	}
}

func TestOrchestrator_QueuedCountsAsPending(t *testing.T) {
	p := &fakeProvider{
		statuses: []JobStatus{
			{Status: StatusQueued},
			{Status: StatusQueued},
			{Status: StatusProcessing},
			{Status: StatusCompleted},
		},
	}
	o := newTestOrchestrator(p, nil)

	if _, err := o.Submit(context.Background(), []byte("audio"), "key"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, _, gets := p.calls()
	if gets != 4 {
		t.Errorf("GetStatus called %d times, want 4", gets)
	}
}

func TestOrchestrator_TransientPollErrorsConsumeBudget(t *testing.T) {
	p := &fakeProvider{statusErr: fmt.Errorf("connection reset")}
	o := newTestOrchestrator(p, nil)

	_, err := o.Submit(context.Background(), []byte("audio"), "key")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout when every poll fails", err)
	}
}

func TestOrchestrator_AuthRejectedDuringPolling(t *testing.T) {
	p := &fakeProvider{statusErr: fmt.Errorf("provider: %w", ErrAuth)}
	o := newTestOrchestrator(p, nil)

	_, err := o.Submit(context.Background(), []byte("audio"), "key")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("revoked credentials must not burn the whole poll budget")
	}
}

func TestOrchestrator_ContextCancelStopsPolling(t *testing.T) {
	p := &fakeProvider{
		statuses: []JobStatus{{Status: StatusProcessing}},
	}
	o := NewOrchestrator(OrchestratorOptions{
		Provider:     p,
		PollInterval: 50 * time.Millisecond,
		Log:          zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Submit(ctx, []byte("audio"), "key")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
