// Package bus carries lifecycle events inside the process over watermill.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-chatbot-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	Topic = "conversation.events"

	MetadataEventType  = "event_type"
	MetadataOccurredAt = "occurred_at"
)

// Publisher writes events to a watermill topic, one message per event.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

func NewPublisher(publisher message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = Topic
	}
	return &Publisher{publisher: publisher, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataEventType, event.EventType())
	msg.Metadata.Set(MetadataOccurredAt, event.Timestamp().UTC().Format(time.RFC3339Nano))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}
	return nil
}

// Decode turns a message produced by Publisher back into an event.
func Decode(msg *message.Message) (events.BaseEvent, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &data); err != nil {
		return events.BaseEvent{}, fmt.Errorf("failed to unmarshal event payload: %w", err)
	}
	occurredAt, _ := time.Parse(time.RFC3339Nano, msg.Metadata.Get(MetadataOccurredAt))
	return events.BaseEvent{
		Type:       msg.Metadata.Get(MetadataEventType),
		Data:       data,
		OccurredAt: occurredAt,
	}, nil
}
