package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const transcriptsSchema = `
CREATE TABLE IF NOT EXISTS transcripts (
    id              TEXT PRIMARY KEY,
    filename        TEXT NOT NULL DEFAULT '',
    speaker_count   INT NOT NULL,
    utterance_count INT NOT NULL,
    utterances      JSONB NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS transcripts_created_at_idx ON transcripts (created_at DESC);
`

// EnsureSchema creates the transcripts table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, transcriptsSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TranscriptRow is a persisted completed transcript.
type TranscriptRow struct {
	ID             string          `json:"id"`
	Filename       string          `json:"filename,omitempty"`
	SpeakerCount   int             `json:"speaker_count"`
	UtteranceCount int             `json:"utterance_count"`
	Utterances     json.RawMessage `json:"utterances,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// InsertTranscript stores a completed transcript.
func (db *DB) InsertTranscript(ctx context.Context, row *TranscriptRow) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO transcripts (id, filename, speaker_count, utterance_count, utterances)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		row.ID, row.Filename, row.SpeakerCount, row.UtteranceCount, row.Utterances)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// ListTranscripts returns transcript summaries, newest first. Utterances are
// omitted from list results.
func (db *DB) ListTranscripts(ctx context.Context, limit, offset int) ([]TranscriptRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, filename, speaker_count, utterance_count, created_at
		FROM transcripts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []TranscriptRow
	for rows.Next() {
		var t TranscriptRow
		if err := rows.Scan(&t.ID, &t.Filename, &t.SpeakerCount, &t.UtteranceCount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTranscript returns one persisted transcript with its utterances, or nil
// if not found.
func (db *DB) GetTranscript(ctx context.Context, id string) (*TranscriptRow, error) {
	var t TranscriptRow
	err := db.Pool.QueryRow(ctx, `
		SELECT id, filename, speaker_count, utterance_count, utterances, created_at
		FROM transcripts WHERE id = $1`, id).
		Scan(&t.ID, &t.Filename, &t.SpeakerCount, &t.UtteranceCount, &t.Utterances, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return &t, nil
}
