package events

import (
	"context"
	"time"

	"ai-chatbot-be/internal/pkg/logger"
)

// LifecyclePublisher emits conversation lifecycle events. Publishing is
// auxiliary: failures are logged and never returned to the caller.
type LifecyclePublisher struct {
	publisher Publisher
	logger    logger.ILogger
	now       func() time.Time
}

func NewLifecyclePublisher(publisher Publisher, logger logger.ILogger) *LifecyclePublisher {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &LifecyclePublisher{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *LifecyclePublisher) SessionCreated(ctx context.Context, sessionID, agentID string) {
	p.publish(ctx, TypeSessionCreated, map[string]interface{}{
		"session_id": sessionID,
		"agent_id":   agentID,
	})
}

func (p *LifecyclePublisher) ProcessSubmitted(ctx context.Context, sessionID, processID, agentID string) {
	p.publish(ctx, TypeProcessSubmitted, map[string]interface{}{
		"session_id": sessionID,
		"process_id": processID,
		"agent_id":   agentID,
	})
}

func (p *LifecyclePublisher) ProcessCompleted(ctx context.Context, sessionID, processID, status string) {
	p.publish(ctx, TypeProcessCompleted, map[string]interface{}{
		"session_id": sessionID,
		"process_id": processID,
		"status":     status,
	})
}

func (p *LifecyclePublisher) SessionRated(ctx context.Context, sessionID string, rating int) {
	p.publish(ctx, TypeSessionRated, map[string]interface{}{
		"session_id": sessionID,
		"rating":     rating,
	})
}

func (p *LifecyclePublisher) SessionSolved(ctx context.Context, sessionID, solved string) {
	p.publish(ctx, TypeSessionSolved, map[string]interface{}{
		"session_id": sessionID,
		"solved":     solved,
	})
}

func (p *LifecyclePublisher) SessionAborted(ctx context.Context, sessionID string) {
	p.publish(ctx, TypeSessionAborted, map[string]interface{}{
		"session_id": sessionID,
	})
}

func (p *LifecyclePublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	evt := BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: p.now(),
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Warn("EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
