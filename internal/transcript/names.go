package transcript

import "sync"

// NameMap holds user-supplied display names for provider speaker labels. An
// empty name means "use the default label". Its lifecycle is independent of
// the transcript: it is reset whenever a new recording is submitted.
type NameMap struct {
	mu    sync.RWMutex
	names map[SpeakerID]string
}

func NewNameMap() *NameMap {
	return &NameMap{names: make(map[SpeakerID]string)}
}

// Set assigns a display name to a speaker. An empty name removes the entry.
func (m *NameMap) Set(speaker SpeakerID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == "" {
		delete(m.names, speaker)
		return
	}
	m.names[speaker] = name
}

// Get returns the display name for a speaker, or "" if none is set.
func (m *NameMap) Get(speaker SpeakerID) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names[speaker]
}

// All returns a copy of the current name assignments.
func (m *NameMap) All() map[SpeakerID]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[SpeakerID]string, len(m.names))
	for k, v := range m.names {
		out[k] = v
	}
	return out
}

// Reset discards all name assignments.
func (m *NameMap) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = make(map[SpeakerID]string)
}
