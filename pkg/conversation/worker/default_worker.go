package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ai-chatbot-be/internal/constant"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/pkg/conversation/claim"
	"ai-chatbot-be/pkg/events"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AnswerGenerator produces the answer to one query. sourceRef, when not nil,
// is the URL of the page the answer was drawn from.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, agentID, sessionID, query string) (answer string, sourceRef *string, err error)
}

type RichContentLookup interface {
	GetPageMetadata(ctx context.Context, url string) (*entity.RichContent, error)
}

type AgentConfig interface {
	GetDefaultResponse(agentID string) string
}

// Factory builds the worker that completes process for the given agent mode.
type Factory func(agentID, sessionID string, process *entity.Process, agentMode string) Worker

type Dependencies struct {
	UowFactory  unitofwork.RepositoryFactory
	Generator   AnswerGenerator
	RichContent RichContentLookup
	Agents      AgentConfig
	Claimer     claim.Claimer
	Events      *events.LifecyclePublisher
	Logger      logger.ILogger
	Now         func() time.Time
}

func NewDefaultFactory(deps Dependencies) Factory {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return func(agentID, sessionID string, process *entity.Process, agentMode string) Worker {
		return &DefaultWorker{
			deps:      deps,
			agentID:   agentID,
			sessionID: sessionID,
			process:   process.Clone(),
			agentMode: agentMode,
		}
	}
}

// DefaultWorker answers a single process and writes the result once.
type DefaultWorker struct {
	deps      Dependencies
	agentID   string
	sessionID string
	process   *entity.Process
	agentMode string
}

func (w *DefaultWorker) Run(ctx context.Context) {
	// Release is owner-checked, so the early release below makes this a no-op
	// unless the run panics before reaching it.
	defer w.releaseClaim(ctx)

	w.deps.Logger.Debug("WORKER", "Worker started", map[string]interface{}{
		"session_id": w.sessionID,
		"process_id": w.process.Id,
	})

	result := w.complete(ctx)

	uow := w.deps.UowFactory.NewUnitOfWork(ctx)
	err := uow.ProcessRepository().Save(ctx, result)
	// From here on the stored process decides the session status.
	w.releaseClaim(ctx)
	if err != nil {
		// The process stays processing; the session expires on its own.
		w.deps.Logger.Error("WORKER", "Failed to save completed process", map[string]interface{}{
			"session_id": w.sessionID,
			"process_id": result.Id,
			"error":      err.Error(),
		})
		return
	}

	if err := uow.SessionRepository().TouchActivity(ctx, w.sessionID, w.deps.Now()); err != nil {
		w.deps.Logger.Error("WORKER", "Failed to refresh session activity", map[string]interface{}{
			"session_id": w.sessionID,
			"error":      err.Error(),
		})
	}

	if w.deps.Events != nil {
		w.deps.Events.ProcessCompleted(ctx, w.sessionID, result.Id, result.Status)
	}

	w.deps.Logger.Debug("WORKER", "Worker finished", map[string]interface{}{
		"session_id": w.sessionID,
		"process_id": result.Id,
		"status":     result.Status,
	})
}

// complete builds the final process state without touching storage.
func (w *DefaultWorker) complete(ctx context.Context) *entity.Process {
	ctx, span := otel.Tracer("conversation-worker").Start(ctx, "worker.generate_answer",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("agent.id", w.agentID),
			attribute.String("session.id", w.sessionID),
			attribute.String("process.id", w.process.Id),
		),
	)
	defer span.End()

	result := w.process.Clone()
	result.Agent = w.agentMode

	answer, sourceRef, err := w.generate(ctx, result.Query)
	now := w.deps.Now()
	response := entity.ProcessResponse{
		ResponseId: strconv.FormatInt(now.UnixMilli(), 10),
		CreatedAt:  now,
	}

	if err != nil {
		w.deps.Logger.Error("WORKER", "Answer generation failed", map[string]interface{}{
			"session_id": w.sessionID,
			"process_id": result.Id,
			"error":      err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "answer generation failed")

		result.Status = constant.ProcessStatusError
		response.Text = w.defaultResponse()
		result.Responses = append(result.Responses, response)
		return result
	}

	result.Status = constant.ProcessStatusDone
	response.Text = answer
	if response.Text == "" {
		response.Text = w.defaultResponse()
	}
	if sourceRef != nil && *sourceRef != "" {
		response.RichContent = w.richContent(ctx, *sourceRef)
	}
	result.Responses = append(result.Responses, response)
	return result
}

func (w *DefaultWorker) generate(ctx context.Context, query string) (answer string, sourceRef *string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("answer generator panicked: %v", r)
		}
	}()
	return w.deps.Generator.GenerateAnswer(ctx, w.agentID, w.sessionID, query)
}

func (w *DefaultWorker) richContent(ctx context.Context, url string) *entity.RichContent {
	if w.deps.RichContent == nil {
		return nil
	}
	rich, err := w.deps.RichContent.GetPageMetadata(ctx, url)
	if err != nil || rich == nil {
		if err != nil {
			w.deps.Logger.Warn("WORKER", "Rich content lookup failed", map[string]interface{}{
				"url":   url,
				"error": err.Error(),
			})
		}
		return nil
	}
	rich.Type = constant.RichContentTypeURL
	return rich
}

func (w *DefaultWorker) releaseClaim(ctx context.Context) {
	if w.deps.Claimer == nil {
		return
	}
	if err := w.deps.Claimer.Release(ctx, w.sessionID, w.process.Id); err != nil {
		w.deps.Logger.Warn("WORKER", "Failed to release session claim", map[string]interface{}{
			"session_id": w.sessionID,
			"error":      err.Error(),
		})
	}
}

func (w *DefaultWorker) defaultResponse() string {
	if w.deps.Agents != nil {
		if text := w.deps.Agents.GetDefaultResponse(w.agentID); text != "" {
			return text
		}
	}
	return constant.FallbackResponse
}
