package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"shorestay/internal/domain/shared/events"
)

// EventSink publishes domain events to Kafka as cloudevents. Delivery is
// best effort from the caller's point of view; the first publish error is
// returned and the remaining events of the batch are skipped.
type EventSink struct {
	Producer    *Producer
	TopicPrefix string
	Source      string
}

func (s *EventSink) Publish(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		payload, err := s.envelope(event)
		if err != nil {
			return err
		}
		headers := map[string]string{
			"content-type": "application/cloudevents+json",
		}
		if err := s.Producer.Publish(ctx, s.topicFor(event.EventName()), event.AggregateID(), payload, headers); err != nil {
			return err
		}
	}
	return nil
}

func (s *EventSink) envelope(event events.DomainEvent) ([]byte, error) {
	return json.Marshal(map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            event.EventName() + ".v1",
		"source":          s.source(),
		"time":            event.OccurredAt().UTC().Format(time.RFC3339Nano),
		"datacontenttype": "application/json",
		"data":            event,
	})
}

func (s *EventSink) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if s.TopicPrefix != "" {
		topic = s.TopicPrefix + topic
	}
	return topic
}

func (s *EventSink) source() string {
	if s.Source != "" {
		return s.Source
	}
	return "app://shorestay"
}
