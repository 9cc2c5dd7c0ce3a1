package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"call-transcript-service/internal/models"
)

// testWriter captures written messages.
type testWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *testWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *testWriter) Close() error {
	w.closed = true
	return nil
}

func enabledPublisher(completed, failed *testWriter) *Publisher {
	p := New(&Config{
		TopicCompleted: "test.completed",
		TopicFailed:    "test.failed",
		Principal:      "test-svc",
	})
	p.writerCompleted = completed
	p.writerFailed = failed
	p.enabled = true
	return p
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerCompleted != nil || p.writerFailed != nil {
				t.Error("expected nil writers when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Enabled:        false,
		Brokers:        []string{"localhost:9092"},
		TopicCompleted: "test.completed",
		TopicFailed:    "test.failed",
		Principal:      "test-principal",
	})

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicCompleted != "test.completed" {
		t.Errorf("expected topic completed 'test.completed', got %s", p.topicCompleted)
	}
	if p.topicFailed != "test.failed" {
		t.Errorf("expected topic failed 'test.failed', got %s", p.topicFailed)
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := New(&Config{
		Enabled:        true,
		Brokers:        []string{"localhost:9092"},
		TopicCompleted: "test.completed",
		TopicFailed:    "test.failed",
	})
	defer p.Close()

	if !p.enabled {
		t.Fatal("expected publisher to be enabled")
	}
	w, ok := p.writerCompleted.(*kafka.Writer)
	if !ok || w.Topic != "test.completed" {
		t.Errorf("expected kafka writer for test.completed, got %#v", p.writerCompleted)
	}
}

func TestPublisher_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.PublishCompleted(context.Background(), models.TranscriptCompleted{CallID: "call-1"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.PublishFailed(context.Background(), models.TranscriptFailed{CallID: "call-1"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishCompleted(t *testing.T) {
	completed, failed := &testWriter{}, &testWriter{}
	p := enabledPublisher(completed, failed)

	event := models.TranscriptCompleted{
		EventType:  models.EventTranscriptCompleted,
		CallID:     "call-123",
		JobID:      "call-123-job-1",
		Transcript: models.EmptyResult(),
	}
	if err := p.PublishCompleted(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(completed.msgs) != 1 || len(failed.msgs) != 0 {
		t.Fatalf("expected one completed message, got completed=%d failed=%d", len(completed.msgs), len(failed.msgs))
	}
	msg := completed.msgs[0]
	if string(msg.Key) != "call-123" {
		t.Errorf("expected key call-123, got %s", msg.Key)
	}
	if string(msg.Headers[0].Value) != models.EventTranscriptCompleted {
		t.Errorf("expected eventType header, got %s", msg.Headers[0].Value)
	}
	if string(msg.Headers[1].Value) != "test-svc" {
		t.Errorf("expected principal header, got %s", msg.Headers[1].Value)
	}

	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	transcript := decoded["transcript"].(map[string]any)
	if segs, ok := transcript["segments"].([]any); !ok || len(segs) != 0 {
		t.Errorf("expected empty segments array, got %v", transcript["segments"])
	}
}

func TestPublisher_PublishFailed(t *testing.T) {
	completed, failed := &testWriter{}, &testWriter{}
	p := enabledPublisher(completed, failed)

	event := models.TranscriptFailed{
		EventType: models.EventTranscriptFailed,
		CallID:    "call-123",
		Stage:     "SPLITTING",
		Error:     "download failed",
	}
	if err := p.PublishFailed(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(failed.msgs) != 1 || len(completed.msgs) != 0 {
		t.Fatalf("expected one failed message, got completed=%d failed=%d", len(completed.msgs), len(failed.msgs))
	}
}

func TestPublisher_WriteError(t *testing.T) {
	writeErr := errors.New("broker unavailable")
	p := enabledPublisher(&testWriter{err: writeErr}, &testWriter{})

	err := p.PublishCompleted(context.Background(), models.TranscriptCompleted{CallID: "call-1"})
	if !errors.Is(err, writeErr) {
		t.Errorf("expected write error, got %v", err)
	}
}

func TestPublisher_Close(t *testing.T) {
	completed, failed := &testWriter{}, &testWriter{}
	p := enabledPublisher(completed, failed)

	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !completed.closed || !failed.closed {
		t.Error("expected both writers to be closed")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}
