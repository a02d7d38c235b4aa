package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/speakerlens/speakerlens/internal/transcript"
)

const DefaultBaseURL = "https://api.assemblyai.com"

// AssemblyAIClient calls the AssemblyAI speech-to-text API: a raw-bytes upload
// endpoint, a transcript submission endpoint, and a per-job status endpoint.
// Implements the Provider interface.
type AssemblyAIClient struct {
	baseURL string
	client  *http.Client
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	Error      string         `json:"error"`
	Utterances []aaiUtterance `json:"utterances"`
}

type aaiUtterance struct {
	Speaker string `json:"speaker"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Text    string `json:"text"`
}

// NewAssemblyAIClient creates a client against the given base URL (the
// production API when empty).
func NewAssemblyAIClient(baseURL string, timeout time.Duration) *AssemblyAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &AssemblyAIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Upload sends raw audio bytes and returns the provider's upload URL.
func (c *AssemblyAIClient) Upload(ctx context.Context, audio []byte, credentials string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", credentials)
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return result.UploadURL, nil
}

// RequestTranscription submits a transcription job with speaker labels
// enabled and returns the job identifier.
func (c *AssemblyAIClient) RequestTranscription(ctx context.Context, uploadURL, credentials string) (string, error) {
	payload, err := json.Marshal(submitRequest{AudioURL: uploadURL, SpeakerLabels: true})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", credentials)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var result submitResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("submit response missing id")
	}
	return result.ID, nil
}

// GetStatus retrieves the status of a transcription job, including utterances
// once the job has completed.
func (c *AssemblyAIClient) GetStatus(ctx context.Context, jobID, credentials string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", credentials)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result statusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	st := &JobStatus{Status: result.Status, Error: result.Error}
	for _, u := range result.Utterances {
		st.Utterances = append(st.Utterances, transcript.Utterance{
			Speaker: transcript.SpeakerID(u.Speaker),
			Start:   u.Start,
			End:     u.End,
			Text:    u.Text,
		})
	}
	return st, nil
}

// do executes a request and returns the response body, mapping credential
// rejections to ErrAuth.
func (c *AssemblyAIClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: provider returned status %d: %s", ErrAuth, resp.StatusCode, string(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("provider API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
