// Package storage persists processed calls in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"call-transcript-service/internal/models"
)

// ErrNotFound is returned when no call matches the requested ID.
var ErrNotFound = errors.New("transcript not found")

// Record is one processed call.
type Record struct {
	CallID     string                  `json:"callId"`
	JobID      string                  `json:"jobId"`
	AudioURL   string                  `json:"stereoAudioUrl"`
	Aligned    bool                    `json:"aligned"`
	Transcript models.TranscriptResult `json:"transcript"`
	Stats      models.CallStats        `json:"stats"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// Store handles SQLite database operations.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS call_transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		call_id TEXT NOT NULL,
		job_id TEXT NOT NULL UNIQUE,
		audio_url TEXT NOT NULL,
		aligned INTEGER NOT NULL,
		transcript TEXT NOT NULL,
		stats TEXT NOT NULL,
		segment_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_call_transcripts_call_id ON call_transcripts(call_id);
	CREATE INDEX IF NOT EXISTS idx_call_transcripts_created_at ON call_transcripts(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save stores a processed call. CreatedAt defaults to now.
func (s *Store) Save(ctx context.Context, r Record) error {
	transcript, err := json.Marshal(r.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO call_transcripts (call_id, job_id, audio_url, aligned, transcript, stats, segment_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.CallID, r.JobID, r.AudioURL, r.Aligned, string(transcript), string(stats),
		len(r.Transcript.Segments), r.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// Get returns the most recent record whose call ID or job ID equals id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	query := `
	SELECT call_id, job_id, audio_url, aligned, transcript, stats, created_at
	FROM call_transcripts WHERE call_id = ? OR job_id = ?
	ORDER BY created_at DESC, id DESC LIMIT 1
	`
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, id, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get transcript: %w", err)
	}
	return r, nil
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `
	SELECT call_id, job_id, audio_url, aligned, transcript, stats, created_at
	FROM call_transcripts ORDER BY created_at DESC, id DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list transcripts: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	return records, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                 Record
		transcript, stats string
		createdAt         int64
	)
	if err := row.Scan(&r.CallID, &r.JobID, &r.AudioURL, &r.Aligned, &transcript, &stats, &createdAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(transcript), &r.Transcript); err != nil {
		return Record{}, fmt.Errorf("decode transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
		return Record{}, fmt.Errorf("decode stats: %w", err)
	}
	r.CreatedAt = time.Unix(0, createdAt)
	return r, nil
}
