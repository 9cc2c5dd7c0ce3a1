package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"call-transcript-service/internal/observability/logging"
)

// messageReader is the subset of kafka.Reader used by the consumer.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader returns a partition-0 reader starting lookback ago. It does not
// join a consumer group so it works through a port-forward.
func NewReader(ctx context.Context, brokers []string, topic string, lookback time.Duration) *kafka.Reader {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := reader.SetOffsetAt(ctx, time.Now().Add(-lookback)); err != nil {
		logger := logging.WithComponent("viewer")
		logger.Warn().Err(err).Str("topic", topic).Msg("Failed to seek, reading from the first offset")
	}
	return reader
}

// Decode converts a Kafka message into a browser event. The eventType
// header wins over the payload field when both are present.
func Decode(msg kafka.Message) (Event, error) {
	var envelope struct {
		EventType string `json:"eventType"`
		CallID    string `json:"callId"`
		JobID     string `json:"jobId"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	event := Event{
		EventType: envelope.EventType,
		CallID:    envelope.CallID,
		JobID:     envelope.JobID,
		Timestamp: envelope.Timestamp,
		Payload:   json.RawMessage(msg.Value),
	}
	for _, h := range msg.Headers {
		if h.Key == "eventType" && len(h.Value) > 0 {
			event.EventType = string(h.Value)
		}
	}
	if event.CallID == "" {
		event.CallID = string(msg.Key)
	}
	return event, nil
}

// Consume reads messages until ctx is done and publishes them to the hub.
// Read errors are retried after a second.
func Consume(ctx context.Context, hub *Hub, reader messageReader, topic string) {
	defer reader.Close()
	logger := logging.WithComponent("viewer").With().Str("topic", topic).Logger()
	logger.Info().Msg("Consuming from Kafka topic")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("Kafka read error")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		event, err := Decode(msg)
		if err != nil {
			logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping malformed event")
			continue
		}

		logger.Debug().
			Str("eventType", event.EventType).
			Str("callId", event.CallID).
			Msg("Received event")
		hub.Publish(ctx, event)
	}
}
