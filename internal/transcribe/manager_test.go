package transcribe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/speakerlens/speakerlens/internal/transcript"
)

// chanProvider gates each job's completion on a per-job channel, letting tests
// control resolution order across overlapping submissions. The audio payload
// doubles as the job identifier.
type chanProvider struct {
	mu    sync.Mutex
	gates map[string]chan JobStatus
}

func newChanProvider() *chanProvider {
	return &chanProvider{gates: make(map[string]chan JobStatus)}
}

func (p *chanProvider) gate(id string) chan JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.gates[id]; !ok {
		p.gates[id] = make(chan JobStatus, 1)
	}
	return p.gates[id]
}

func (p *chanProvider) Upload(ctx context.Context, audio []byte, credentials string) (string, error) {
	return string(audio), nil
}

func (p *chanProvider) RequestTranscription(ctx context.Context, uploadURL, credentials string) (string, error) {
	return uploadURL, nil
}

func (p *chanProvider) GetStatus(ctx context.Context, jobID, credentials string) (*JobStatus, error) {
	st := <-p.gate(jobID)
	return &st, nil
}

func newTestManager(p Provider, onCompleted CompletedFunc) *Manager {
	return NewManager(ManagerOptions{
		Provider:     p,
		Credentials:  "test-key",
		PollInterval: time.Millisecond,
		OnCompleted:  onCompleted,
		Log:          zerolog.Nop(),
	})
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestManager_CompletedJobAppliesResult(t *testing.T) {
	p := newChanProvider()
	m := newTestManager(p, nil)

	id := m.Submit("a.wav", []byte("one"))
	p.gate("one") <- JobStatus{
		Status:     StatusCompleted,
		Utterances: []transcript.Utterance{{Speaker: "A", Start: 0, End: 500, Text: "hello"}},
	}

	waitFor(t, func() bool { return m.Job().State == StateCompleted }, "job completion")

	if m.Job().ID != id {
		t.Errorf("job ID = %s, want %s", m.Job().ID, id)
	}
	res := m.Result()
	if res == nil || len(res.Utterances) != 1 {
		t.Fatalf("Result = %+v, want 1 utterance", res)
	}
}

func TestManager_StaleResolutionDiscarded(t *testing.T) {
	p := newChanProvider()
	var completed []string
	var mu sync.Mutex
	m := newTestManager(p, func(jobID, filename string, res *transcript.Result) {
		mu.Lock()
		completed = append(completed, jobID)
		mu.Unlock()
	})

	m.Submit("a.wav", []byte("one"))
	id2 := m.Submit("b.wav", []byte("two"))

	// Second submission finishes first and becomes current.
	p.gate("two") <- JobStatus{
		Status:     StatusCompleted,
		Utterances: []transcript.Utterance{{Speaker: "B", Start: 0, End: 100, Text: "second"}},
	}
	waitFor(t, func() bool { return m.Job().State == StateCompleted }, "second job completion")

	// First submission resolves late; its result must be ignored.
	p.gate("one") <- JobStatus{
		Status:     StatusCompleted,
		Utterances: []transcript.Utterance{{Speaker: "A", Start: 0, End: 100, Text: "first"}},
	}
	time.Sleep(50 * time.Millisecond)

	if m.Job().ID != id2 {
		t.Errorf("job ID = %s, want %s (stale resolution applied)", m.Job().ID, id2)
	}
	res := m.Result()
	if res == nil || res.Utterances[0].Text != "second" {
		t.Fatalf("Result = %+v, want the second submission's transcript", res)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 1 || completed[0] != id2 {
		t.Errorf("OnCompleted calls = %v, want exactly [%s]", completed, id2)
	}
}

func TestManager_FailureRecordsError(t *testing.T) {
	p := newChanProvider()
	m := newTestManager(p, nil)

	m.Submit("a.wav", []byte("one"))
	p.gate("one") <- JobStatus{Status: StatusError, Error: "bad audio"}

	waitFor(t, func() bool { return m.Job().State == StateFailed }, "job failure")

	if m.Job().Error == "" {
		t.Error("job error message is empty")
	}
	if m.Result() != nil {
		t.Error("Result must stay nil after a failed job")
	}
}

func TestManager_NewSubmissionResetsNamesAndResult(t *testing.T) {
	p := newChanProvider()
	m := newTestManager(p, nil)

	m.Submit("a.wav", []byte("one"))
	p.gate("one") <- JobStatus{
		Status:     StatusCompleted,
		Utterances: []transcript.Utterance{{Speaker: "A", Start: 0, End: 100, Text: "x"}},
	}
	waitFor(t, func() bool { return m.Result() != nil }, "first completion")

	m.SetSpeakerName("A", "Alice")
	if m.SpeakerNames()["A"] != "Alice" {
		t.Fatal("speaker name not set")
	}

	m.Submit("b.wav", []byte("two"))

	if m.Result() != nil {
		t.Error("previous result must be discarded immediately on new submission")
	}
	if len(m.SpeakerNames()) != 0 {
		t.Error("speaker names must reset on new submission")
	}

	// Let the in-flight job drain so its goroutine exits.
	p.gate("two") <- JobStatus{Status: StatusCompleted}
}
