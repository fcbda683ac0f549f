package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-chatbot-be/internal/constant"
	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/memory"
	"ai-chatbot-be/pkg/conversation/claim"
	"ai-chatbot-be/pkg/conversation/worker"
	"ai-chatbot-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgents struct{}

func (stubAgents) GetAgentMode(agentId string) string { return constant.AgentModeLLM }
func (stubAgents) GetVersion(agentId string) string   { return "1.0" }
func (stubAgents) GetDefaultResponse(agentId string) string {
	return "default answer"
}
func (stubAgents) GetUIParams(agentId string) map[string]interface{} {
	return map[string]interface{}{"title": "Support"}
}

type generatorFunc func(ctx context.Context, agentID, sessionID, query string) (string, *string, error)

func (f generatorFunc) GenerateAnswer(ctx context.Context, agentID, sessionID, query string) (string, *string, error) {
	return f(ctx, agentID, sessionID, query)
}

func echo(ctx context.Context, agentID, sessionID, query string) (string, *string, error) {
	return "echo: " + query, nil, nil
}

// manualExecutor holds workers until the test runs them.
type manualExecutor struct {
	mu      sync.Mutex
	pending []worker.Worker
	err     error
}

func (e *manualExecutor) Execute(w worker.Worker) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.pending = append(e.pending, w)
	return nil
}

func (e *manualExecutor) RunAll() {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, w := range pending {
		w.Run(context.Background())
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, event.EventType())
	return nil
}

type harness struct {
	svc       IChatbotService
	repos     *memory.RepositoryFactory
	claimer   *claim.MemoryClaimer
	executor  *manualExecutor
	published *recordingPublisher
	now       time.Time
	mu        sync.Mutex
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func newHarness(t *testing.T, generator worker.AnswerGenerator, executor WorkerExecutor) *harness {
	t.Helper()
	return newHarnessWithPublisher(t, generator, executor, nil)
}

// newHarnessWithPublisher sends lifecycle events to publisher instead of the
// recording one when it is not nil.
func newHarnessWithPublisher(t *testing.T, generator worker.AnswerGenerator, executor WorkerExecutor, publisher events.Publisher) *harness {
	t.Helper()
	h := &harness{
		repos:     memory.NewRepositoryFactory(),
		executor:  &manualExecutor{},
		published: &recordingPublisher{},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if executor == nil {
		executor = h.executor
	}

	log := logger.NewNopLogger()
	claimer := claim.NewMemoryClaimer(h.clock)
	h.claimer = claimer
	if publisher == nil {
		publisher = h.published
	}
	lifecycle := events.NewLifecyclePublisher(publisher, log)
	factory := worker.NewDefaultFactory(worker.Dependencies{
		UowFactory: h.repos,
		Generator:  generator,
		Agents:     stubAgents{},
		Claimer:    claimer,
		Events:     lifecycle,
		Logger:     log,
		Now:        h.clock,
	})

	h.svc = NewChatbotService(h.repos, stubAgents{}, executor, factory, claimer, lifecycle, log,
		30*time.Minute, 2, WithClock(h.clock))
	return h
}

func (h *harness) submit(t *testing.T, sessionId *string, query string) *dto.SubmitQueryResponse {
	t.Helper()
	res, err := h.svc.SubmitQuery(context.Background(), "a1", sessionId, &dto.SubmitQueryRequest{Query: query})
	require.NoError(t, err)
	return res
}

func (h *harness) processCount(t *testing.T, sessionId string) int {
	t.Helper()
	ctx := context.Background()
	processes, err := h.repos.NewUnitOfWork(ctx).ProcessRepository().FindAllBySessionId(ctx, sessionId)
	require.NoError(t, err)
	return len(processes)
}

func TestSubmitQuery_NewSessionAnswered(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	res := h.submit(t, nil, "hi")

	assert.Equal(t, constant.SessionStatusProcessing, res.Status)
	assert.Len(t, res.SessionId, 32)
	require.NotNil(t, res.RetryAfter)
	assert.Equal(t, 2, *res.RetryAfter)

	pending, err := h.svc.CheckAnswer(ctx, res.SessionId, res.ProcessId)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusProcessing, pending.Status)
	assert.Equal(t, constant.ProcessStatusProcessing, pending.ProcessStatus)
	assert.Empty(t, pending.Responses)
	require.NotNil(t, pending.RetryAfter)

	h.advance(time.Second)
	h.executor.RunAll()

	answer, err := h.svc.CheckAnswer(ctx, res.SessionId, res.ProcessId)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusActive, answer.Status)
	assert.Equal(t, constant.ProcessStatusDone, answer.ProcessStatus)
	require.Len(t, answer.Responses, 1)
	assert.Equal(t, "echo: hi", answer.Responses[0].Response)
	assert.Nil(t, answer.RetryAfter)
	require.Len(t, answer.MessageHistory, 1)
	assert.Equal(t, "hi", answer.MessageHistory[0].User)

	assert.Equal(t, []string{
		events.TypeSessionCreated,
		events.TypeProcessSubmitted,
		events.TypeProcessCompleted,
	}, h.published.types)
}

func TestSubmitQuery_RejectsWhileProcessing(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	first := h.submit(t, nil, "first")

	_, err := h.svc.SubmitQuery(ctx, "a1", &first.SessionId, &dto.SubmitQueryRequest{Query: "second"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, h.processCount(t, first.SessionId))

	h.executor.RunAll()

	h.advance(time.Second)
	second := h.submit(t, &first.SessionId, "second")
	assert.Equal(t, first.SessionId, second.SessionId)
	assert.Equal(t, 2, h.processCount(t, first.SessionId))
}

func TestSubmitQuery_ConcurrentSubmissionsCreateOneProcess(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	first := h.submit(t, nil, "first")
	h.executor.RunAll()
	h.advance(time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.SubmitQuery(ctx, "a1", &first.SessionId, &dto.SubmitQueryRequest{Query: "race"})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrConflict)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 2, h.processCount(t, first.SessionId))
}

// completionGate holds every completion event until opened.
type completionGate struct {
	once    sync.Once
	entered chan struct{}
	open    chan struct{}
}

func newCompletionGate() *completionGate {
	return &completionGate{entered: make(chan struct{}), open: make(chan struct{})}
}

func (g *completionGate) Publish(ctx context.Context, event events.Event) error {
	if event.EventType() == events.TypeProcessCompleted {
		g.once.Do(func() { close(g.entered) })
		<-g.open
	}
	return nil
}

func TestSubmitQuery_FollowUpAcceptedWhileCompletionIsPublished(t *testing.T) {
	gate := newCompletionGate()
	executor := worker.NewExecutor(logger.NewNopLogger())
	h := newHarnessWithPublisher(t, generatorFunc(echo), executor, gate)
	ctx := context.Background()

	first := h.submit(t, nil, "hi")

	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never reached the completion event")
	}

	answer, err := h.svc.CheckAnswer(ctx, first.SessionId, first.ProcessId)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusActive, answer.Status)
	assert.Equal(t, constant.ProcessStatusDone, answer.ProcessStatus)

	_, err = h.svc.MarkSolved(ctx, first.SessionId, constant.SolvedYes)
	require.NoError(t, err)

	h.advance(time.Second)
	second, err := h.svc.SubmitQuery(ctx, "a1", &first.SessionId, &dto.SubmitQueryRequest{Query: "follow-up"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionId, second.SessionId)

	close(gate.open)
	require.NoError(t, executor.Shutdown(ctx))
	assert.Equal(t, 2, h.processCount(t, first.SessionId))
}

func TestSubmitQuery_TakesOverClaimOfFinishedProcess(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	first := h.submit(t, nil, "hi")
	h.executor.RunAll()

	// A claim whose worker stored its result but never released it.
	ok, err := h.claimer.TryClaim(ctx, first.SessionId, first.ProcessId, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	h.advance(time.Second)
	second := h.submit(t, &first.SessionId, "again")
	assert.Equal(t, first.SessionId, second.SessionId)

	holder, err := h.claimer.Holder(ctx, first.SessionId)
	require.NoError(t, err)
	assert.Equal(t, second.ProcessId, holder)

	_, err = h.svc.Rate(ctx, first.SessionId, 4)
	assert.ErrorIs(t, err, ErrConflict, "the new process is running")
}

func TestSubmitQuery_InFlightClaimHolderYieldsConflict(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	first := h.submit(t, nil, "hi")
	h.executor.RunAll()

	ok, err := h.claimer.TryClaim(ctx, first.SessionId, "mutation-in-flight", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	h.advance(time.Second)
	_, err = h.svc.SubmitQuery(ctx, "a1", &first.SessionId, &dto.SubmitQueryRequest{Query: "again"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, h.processCount(t, first.SessionId))

	require.NoError(t, h.claimer.Release(ctx, first.SessionId, "mutation-in-flight"))
	res := h.submit(t, &first.SessionId, "again")
	assert.Equal(t, first.SessionId, res.SessionId)
}

func TestSubmitQuery_SameMillisecondKeepsIdsIncreasing(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)

	first := h.submit(t, nil, "first")
	h.executor.RunAll()
	second := h.submit(t, &first.SessionId, "second")

	assert.Greater(t, second.ProcessId, first.ProcessId)
	assert.Equal(t, 2, h.processCount(t, first.SessionId))
}

func TestSubmitQuery_ExpiredSessionStartsFresh(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	first := h.submit(t, nil, "hi")
	h.executor.RunAll()

	h.advance(31 * time.Minute)

	view, err := h.svc.GetSession(ctx, first.SessionId)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusExpired, view.Status)

	next := h.submit(t, &first.SessionId, "again")
	assert.NotEqual(t, first.SessionId, next.SessionId)
	assert.Equal(t, 1, h.processCount(t, first.SessionId))
	assert.Equal(t, 1, h.processCount(t, next.SessionId))
}

func TestSubmitQuery_RecentActivityKeepsOldSessionAlive(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	first := h.submit(t, nil, "hi")
	h.executor.RunAll()

	for i := 0; i < 3; i++ {
		h.advance(20 * time.Minute)
		res := h.submit(t, &first.SessionId, "still here")
		assert.Equal(t, first.SessionId, res.SessionId)
		h.executor.RunAll()
	}

	view, err := h.svc.GetSession(ctx, first.SessionId)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusActive, view.Status)
	assert.Len(t, view.MessageHistory, 4)
	assert.Len(t, view.ComputeHistory, 4)
}

func TestSubmitQuery_RatedSessionIsClosed(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	first := h.submit(t, nil, "hi")
	h.executor.RunAll()

	_, err := h.svc.Rate(ctx, first.SessionId, 4)
	require.NoError(t, err)

	_, err = h.svc.SubmitQuery(ctx, "a1", &first.SessionId, &dto.SubmitQueryRequest{Query: "more"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, h.processCount(t, first.SessionId))
}

func TestSubmitQuery_Errors(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	missing := "doesnotexist"
	_, err := h.svc.SubmitQuery(ctx, "a1", &missing, &dto.SubmitQueryRequest{Query: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.svc.SubmitQuery(ctx, "a1", nil, &dto.SubmitQueryRequest{Query: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitQuery_RejectedWorkerLeavesNoProcess(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	first := h.submit(t, nil, "hi")
	h.executor.RunAll()
	h.advance(time.Second)

	h.executor.err = worker.ErrExecutorClosed
	_, err := h.svc.SubmitQuery(ctx, "a1", &first.SessionId, &dto.SubmitQueryRequest{Query: "again"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, h.processCount(t, first.SessionId))

	h.executor.err = nil
	h.advance(time.Second)
	res := h.submit(t, &first.SessionId, "retry")
	assert.Equal(t, first.SessionId, res.SessionId)
}

func TestCheckAnswer_NotFound(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	_, err := h.svc.CheckAnswer(ctx, "missing", "1")
	assert.ErrorIs(t, err, ErrNotFound)

	res := h.submit(t, nil, "hi")
	_, err = h.svc.CheckAnswer(ctx, res.SessionId, "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckAnswer_GenerationErrorStillAnswers(t *testing.T) {
	failing := generatorFunc(func(ctx context.Context, agentID, sessionID, query string) (string, *string, error) {
		return "", nil, errors.New("model offline")
	})
	h := newHarness(t, failing, nil)
	ctx := context.Background()

	res := h.submit(t, nil, "hi")
	h.executor.RunAll()

	answer, err := h.svc.CheckAnswer(ctx, res.SessionId, res.ProcessId)
	require.NoError(t, err)
	assert.Equal(t, constant.ProcessStatusError, answer.ProcessStatus)
	assert.Equal(t, constant.SessionStatusActive, answer.Status)
	require.Len(t, answer.Responses, 1)
	assert.Equal(t, "default answer", answer.Responses[0].Response)
}

func TestCheckAnswer_ObservesWholeProcessOnly(t *testing.T) {
	release := make(chan struct{})
	slow := generatorFunc(func(ctx context.Context, agentID, sessionID, query string) (string, *string, error) {
		<-release
		return "final answer", nil, nil
	})
	executor := worker.NewExecutor(logger.NewNopLogger())
	h := newHarness(t, slow, executor)
	ctx := context.Background()

	res := h.submit(t, nil, "hi")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				view, err := h.svc.CheckAnswer(ctx, res.SessionId, res.ProcessId)
				if !assert.NoError(t, err) {
					return
				}
				switch view.ProcessStatus {
				case constant.ProcessStatusProcessing:
					assert.Empty(t, view.Responses)
				case constant.ProcessStatusDone:
					if assert.Len(t, view.Responses, 1) {
						assert.Equal(t, "final answer", view.Responses[0].Response)
					}
					return
				default:
					t.Errorf("unexpected process status %q", view.ProcessStatus)
					return
				}
			}
			t.Error("worker never completed")
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()
	require.NoError(t, executor.Shutdown(ctx))
}

func TestRate(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	res := h.submit(t, nil, "hi")

	_, err := h.svc.Rate(ctx, res.SessionId, 5)
	assert.ErrorIs(t, err, ErrConflict, "rating is refused while processing")

	h.executor.RunAll()

	view, err := h.svc.Rate(ctx, res.SessionId, 5)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusTerminated, view.Status)
	require.NotNil(t, view.Rating)
	assert.Equal(t, 5, *view.Rating)

	_, err = h.svc.Rate(ctx, res.SessionId, 3)
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := h.svc.GetSession(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, 5, *stored.Rating)

	_, err = h.svc.Rate(ctx, res.SessionId, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.svc.Rate(ctx, "missing", 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRate_KeepsLaterActivity(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	res := h.submit(t, nil, "hi")
	h.advance(5 * time.Second)
	h.executor.RunAll()
	completedAt := h.clock()

	view, err := h.svc.Rate(ctx, res.SessionId, 4)
	require.NoError(t, err)
	assert.Equal(t, completedAt.UnixMilli(), view.LastActivityAt)
}

func TestMarkSolved(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	res := h.submit(t, nil, "hi")

	_, err := h.svc.MarkSolved(ctx, res.SessionId, constant.SolvedYes)
	assert.ErrorIs(t, err, ErrConflict)

	h.executor.RunAll()

	view, err := h.svc.MarkSolved(ctx, res.SessionId, constant.SolvedPartially)
	require.NoError(t, err)
	require.NotNil(t, view.Solved)
	assert.Equal(t, constant.SolvedPartially, *view.Solved)
	assert.Equal(t, constant.SessionStatusActive, view.Status)

	_, err = h.svc.MarkSolved(ctx, res.SessionId, "maybe")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.svc.MarkSolved(ctx, "missing", constant.SolvedNo)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAbort(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	res := h.submit(t, nil, "hi")

	_, err := h.svc.Abort(ctx, res.SessionId)
	assert.ErrorIs(t, err, ErrConflict)

	h.executor.RunAll()

	view, err := h.svc.Abort(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusAborted, view.Status)

	_, err = h.svc.Abort(ctx, res.SessionId)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = h.svc.SubmitQuery(ctx, "a1", &res.SessionId, &dto.SubmitQueryRequest{Query: "more"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetSession(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)
	ctx := context.Background()

	page := "https://example.com/help"
	res, err := h.svc.SubmitQuery(ctx, "a1", nil, &dto.SubmitQueryRequest{Query: "hi", SrcPage: &page})
	require.NoError(t, err)
	h.executor.RunAll()

	view, err := h.svc.GetSession(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "a1", view.AgentId)
	assert.Equal(t, "1.0", view.Version)
	require.NotNil(t, view.SourcePage)
	assert.Equal(t, page, *view.SourcePage)
	assert.Equal(t, constant.SessionStatusActive, view.Status)
	require.Contains(t, view.ComputeHistory, res.ProcessId)
	assert.Equal(t, constant.ProcessStatusDone, view.ComputeHistory[res.ProcessId].Status)

	_, err = h.svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHello(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)

	res := h.svc.Hello(context.Background(), "a1")

	assert.Equal(t, "Hello", res.Message)
	assert.Equal(t, "Support", res.UIParams["title"])
}

func TestProcessIdsAreTimestamps(t *testing.T) {
	h := newHarness(t, generatorFunc(echo), nil)

	res := h.submit(t, nil, "hi")

	assert.Equal(t, entity.NewProcessId(h.clock()), res.ProcessId)
}
