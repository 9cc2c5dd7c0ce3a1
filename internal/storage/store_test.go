package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"call-transcript-service/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(callID, jobID string, createdAt time.Time) Record {
	return Record{
		CallID:   callID,
		JobID:    jobID,
		AudioURL: "https://example.com/" + callID + ".wav",
		Aligned:  true,
		Transcript: models.TranscriptResult{
			Segments: []models.Turn{
				{Role: models.SpeakerUser, Text: "Hi.", Start: 0.5, End: 1.0},
				{Role: models.SpeakerAgent, Text: "Hello.", Start: 2.0, End: 2.5},
			},
			Interruptions: []models.InterruptionRecord{},
			LatencyBlocks: []models.LatencyRecord{{SecondsFromStart: 1.0, Duration: 1.0}},
		},
		Stats:     models.CallStats{LatencyP50: 1.0},
		CreatedAt: createdAt,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	want := sampleRecord("call-1", "call-1-job-1", now)
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	for _, id := range []string{"call-1", "call-1-job-1"} {
		t.Run(id, func(t *testing.T) {
			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.JobID != want.JobID || got.AudioURL != want.AudioURL || !got.Aligned {
				t.Errorf("unexpected record: %+v", got)
			}
			if len(got.Transcript.Segments) != 2 || got.Transcript.Segments[1].Text != "Hello." {
				t.Errorf("unexpected segments: %+v", got.Transcript.Segments)
			}
			if got.Stats.LatencyP50 != 1.0 {
				t.Errorf("unexpected stats: %+v", got.Stats)
			}
			if !got.CreatedAt.Equal(time.Unix(0, now.UnixNano())) {
				t.Errorf("expected created at %v, got %v", now, got.CreatedAt)
			}
		})
	}
}

func TestStore_GetReturnsLatestJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now()

	_ = s.Save(ctx, sampleRecord("call-1", "call-1-job-1", base))
	_ = s.Save(ctx, sampleRecord("call-1", "call-1-job-2", base.Add(time.Second)))

	got, err := s.Get(ctx, "call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.JobID != "call-1-job-2" {
		t.Errorf("expected latest job, got %s", got.JobID)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DuplicateJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := sampleRecord("call-1", "call-1-job-1", time.Now())
	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, r); err == nil {
		t.Error("expected error saving the same job twice")
	}
}

func TestStore_List(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"call-a", "call-b", "call-c"} {
		if err := s.Save(ctx, sampleRecord(id, id+"-job-1", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	tests := []struct {
		limit    int
		expected []string
	}{
		{10, []string{"call-c", "call-b", "call-a"}},
		{2, []string{"call-c", "call-b"}},
		{0, []string{}},
	}

	for _, tt := range tests {
		got, err := s.List(ctx, tt.limit)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != len(tt.expected) {
			t.Fatalf("limit %d: expected %d records, got %d", tt.limit, len(tt.expected), len(got))
		}
		for i, r := range got {
			if r.CallID != tt.expected[i] {
				t.Errorf("limit %d: position %d expected %s, got %s", tt.limit, i, tt.expected[i], r.CallID)
			}
		}
	}
}

func TestStore_Ping(t *testing.T) {
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("expected ping to succeed, got %v", err)
	}
}
