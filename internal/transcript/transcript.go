package transcript

// SpeakerID is the opaque label the recognition provider assigns to a detected
// voice. Labels are stable within one transcript but not across transcripts.
type SpeakerID string

// Utterance is one speaker-attributed, time-bounded segment of recognized
// speech. Start and End are milliseconds from the beginning of the recording;
// Start <= End always. Utterances are immutable once produced.
type Utterance struct {
	Speaker SpeakerID `json:"speaker"`
	Start   int64     `json:"start"`
	End     int64     `json:"end"`
	Text    string    `json:"text"`
}

// Duration returns the utterance length in milliseconds.
func (u Utterance) Duration() int64 { return u.End - u.Start }

// Result is a normalized transcript: utterances in the chronological order the
// provider returned them. A Result is replaced wholesale when a new recording
// is submitted, never mutated in place.
type Result struct {
	Utterances []Utterance `json:"utterances"`
}

// Speakers returns the distinct speakers in order of first appearance.
func (r *Result) Speakers() []SpeakerID {
	seen := make(map[SpeakerID]bool)
	var out []SpeakerID
	for _, u := range r.Utterances {
		if !seen[u.Speaker] {
			seen[u.Speaker] = true
			out = append(out, u.Speaker)
		}
	}
	return out
}
