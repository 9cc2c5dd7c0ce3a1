package schema

import (
	"errors"
	"testing"

	"call-transcript-service/internal/models"
)

func TestValidate(t *testing.T) {
	valid := func() models.TranscriptResult {
		return models.TranscriptResult{
			Segments: []models.Turn{
				{Role: models.SpeakerUser, Text: "Hi.", Start: 0.5, End: 1.0},
				{Role: models.SpeakerAgent, Text: "Hello.", Start: 2.0, End: 2.5},
			},
			Interruptions: []models.InterruptionRecord{},
			LatencyBlocks: []models.LatencyRecord{{SecondsFromStart: 1.0, Duration: 1.0}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *models.TranscriptResult)
		wantErr bool
	}{
		{"valid", func(r *models.TranscriptResult) {}, false},
		{"empty result", func(r *models.TranscriptResult) { *r = models.EmptyResult() }, false},
		{"nil list", func(r *models.TranscriptResult) { r.Interruptions = nil }, true},
		{"unknown role", func(r *models.TranscriptResult) { r.Segments[0].Role = "caller" }, true},
		{"end before start", func(r *models.TranscriptResult) { r.Segments[1].End = 1.5 }, true},
		{"out of order", func(r *models.TranscriptResult) { r.Segments[1].Start = 0.1 }, true},
		{"negative latency", func(r *models.TranscriptResult) { r.LatencyBlocks[0].Duration = -1 }, true},
		{"negative interruption", func(r *models.TranscriptResult) {
			r.Interruptions = append(r.Interruptions, models.InterruptionRecord{SecondsFromStart: -0.5})
		}, true},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := v.Validate(r)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTranscript) {
					t.Errorf("expected ErrInvalidTranscript, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
