package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBus_PublishReachesSubscriber(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish("job_state", map[string]string{"state": "polling"})

	select {
	case e := <-ch:
		if e.Type != "job_state" {
			t.Errorf("type = %q, want job_state", e.Type)
		}
		var payload map[string]string
		if err := json.Unmarshal(e.Data, &payload); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
		if payload["state"] != "polling" {
			t.Errorf("payload = %v", payload)
		}
		if e.ID == "" || e.Timestamp == "" {
			t.Error("event missing ID or timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestBus_CancelRemovesSubscriber(t *testing.T) {
	b := NewBus()
	_, cancel := b.Subscribe()

	if got := b.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}
	cancel()
	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount = %d after cancel, want 0", got)
	}
}

func TestBus_SlowSubscriberDropsEvents(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish("job_state", map[string]int{"i": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	if buffered := len(ch); buffered == 0 || buffered > 16 {
		t.Errorf("buffered events = %d, want 1..16", buffered)
	}
}

func TestBus_EventIDsAreUnique(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish("a", nil)
	b.Publish("b", nil)

	e1, e2 := <-ch, <-ch
	if e1.ID == e2.ID {
		t.Errorf("duplicate event IDs: %q", e1.ID)
	}
}
