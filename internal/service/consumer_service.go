package service

import (
	"context"

	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/pkg/events/bus"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService records conversation lifecycle events from the in-process
// bus into the event log.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	eventLog   logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, topicName string, eventLog logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		eventLog:   eventLog,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	// Always ack: a malformed event would fail the same way on redelivery.
	defer msg.Ack()

	evt, err := bus.Decode(msg)
	if err != nil {
		cs.eventLog.Warn("EVENTS", "Dropping malformed event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	details := make(map[string]interface{}, len(evt.Data)+1)
	for k, v := range evt.Data {
		details[k] = v
	}
	details["occurred_at"] = evt.OccurredAt

	cs.eventLog.Info("EVENTS", evt.Type, details)
}
