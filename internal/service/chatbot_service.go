package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ai-chatbot-be/internal/constant"
	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/pkg/conversation/claim"
	"ai-chatbot-be/pkg/conversation/history"
	"ai-chatbot-be/pkg/conversation/status"
	"ai-chatbot-be/pkg/conversation/worker"
	"ai-chatbot-be/pkg/events"

	"github.com/google/uuid"
)

type IChatbotService interface {
	Hello(ctx context.Context, agentId string) *dto.HelloResponse
	SubmitQuery(ctx context.Context, agentId string, sessionId *string, request *dto.SubmitQueryRequest) (*dto.SubmitQueryResponse, error)
	CheckAnswer(ctx context.Context, sessionId, processId string) (*dto.CheckAnswerResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
	Rate(ctx context.Context, sessionId string, rating int) (*dto.SessionResponse, error)
	MarkSolved(ctx context.Context, sessionId, solved string) (*dto.SessionResponse, error)
	Abort(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
}

// AgentDirectory is the agent configuration the engine reads.
type AgentDirectory interface {
	GetAgentMode(agentId string) string
	GetVersion(agentId string) string
	GetUIParams(agentId string) map[string]interface{}
}

type WorkerExecutor interface {
	Execute(w worker.Worker) error
}

const (
	// mutationClaimTTL bounds how long a crashed Rate, MarkSolved or Abort
	// can keep a session claimed.
	mutationClaimTTL = 30 * time.Second
	claimAttempts    = 25
	claimRetryDelay  = 20 * time.Millisecond
)

type Option func(*chatbotService)

func WithClock(now func() time.Time) Option {
	return func(s *chatbotService) {
		s.now = now
	}
}

type chatbotService struct {
	uowFactory    unitofwork.RepositoryFactory
	agents        AgentDirectory
	executor      WorkerExecutor
	workerFactory worker.Factory
	claimer       claim.Claimer
	events        *events.LifecyclePublisher
	resolver      *status.Resolver
	log           logger.ILogger
	now           func() time.Time
}

func NewChatbotService(
	uowFactory unitofwork.RepositoryFactory,
	agents AgentDirectory,
	executor WorkerExecutor,
	workerFactory worker.Factory,
	claimer claim.Claimer,
	eventPublisher *events.LifecyclePublisher,
	log logger.ILogger,
	sessionTimeout time.Duration,
	retryAfterSeconds int,
	opts ...Option,
) IChatbotService {
	s := &chatbotService{
		uowFactory:    uowFactory,
		agents:        agents,
		executor:      executor,
		workerFactory: workerFactory,
		claimer:       claimer,
		events:        eventPublisher,
		resolver:      status.NewResolver(sessionTimeout, retryAfterSeconds),
		log:           log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *chatbotService) Hello(ctx context.Context, agentId string) *dto.HelloResponse {
	return &dto.HelloResponse{
		Message:  "Hello",
		UIParams: s.agents.GetUIParams(agentId),
	}
}

func (s *chatbotService) SubmitQuery(ctx context.Context, agentId string, sessionId *string, request *dto.SubmitQueryRequest) (*dto.SubmitQueryResponse, error) {
	query := strings.TrimSpace(request.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}

	now := s.now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	processId := entity.NewProcessId(now)

	var session *entity.Session
	var latest *entity.Process

	if sessionId != nil && *sessionId != "" {
		// The claim is owned by the process id the submission will create.
		if err := s.acquire(ctx, uow, *sessionId, processId, s.resolver.SessionTimeout()); err != nil {
			return nil, err
		}
		existing, processes, err := s.loadSession(ctx, uow, *sessionId)
		if err != nil {
			s.release(ctx, *sessionId, processId)
			return nil, err
		}

		switch s.resolver.ResolveSessionStatus(existing, processes, now) {
		case constant.SessionStatusProcessing, constant.SessionStatusAborted, constant.SessionStatusTerminated:
			s.release(ctx, existing.Id, processId)
			return nil, ErrConflict
		case constant.SessionStatusExpired:
			s.release(ctx, existing.Id, processId)
		default:
			session = existing
			latest = status.LatestProcess(processes)
		}
	}

	created := session == nil
	if created {
		session = s.newSession(agentId, request.SrcPage, now)
		if err := s.claim(ctx, session.Id, processId); err != nil {
			return nil, err
		}
	}

	if next := nextProcessId(processId, latest); next != processId {
		if err := s.handOver(ctx, session.Id, processId, next); err != nil {
			return nil, err
		}
		processId = next
	}

	process := &entity.Process{
		Id:        processId,
		SessionId: session.Id,
		Query:     query,
		Status:    constant.ProcessStatusProcessing,
		Agent:     s.agents.GetAgentMode(session.AgentId),
		StartedAt: now,
		Responses: []entity.ProcessResponse{},
	}

	if err := s.persistSubmission(ctx, uow, session, process, created); err != nil {
		s.release(ctx, session.Id, process.Id)
		return nil, err
	}

	w := s.workerFactory(session.AgentId, session.Id, process, process.Agent)
	if err := s.executor.Execute(w); err != nil {
		s.log.Warn("CHATBOT", "Worker rejected, removing process", map[string]interface{}{
			"session_id": session.Id,
			"process_id": process.Id,
			"error":      err.Error(),
		})
		if delErr := uow.ProcessRepository().Delete(ctx, session.Id, process.Id); delErr != nil {
			s.log.Error("CHATBOT", "Failed to remove orphan process", map[string]interface{}{
				"session_id": session.Id,
				"process_id": process.Id,
				"error":      delErr.Error(),
			})
		}
		s.release(ctx, session.Id, process.Id)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.events != nil {
		if created {
			s.events.SessionCreated(ctx, session.Id, session.AgentId)
		}
		s.events.ProcessSubmitted(ctx, session.Id, process.Id, session.AgentId)
	}

	retryAfter := s.resolver.RetryAfterSeconds()
	return &dto.SubmitQueryResponse{
		Status:     constant.SessionStatusProcessing,
		SessionId:  session.Id,
		ProcessId:  process.Id,
		RetryAfter: &retryAfter,
	}, nil
}

func (s *chatbotService) persistSubmission(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.Session, process *entity.Process, created bool) error {
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if created {
		if err := uow.SessionRepository().Save(ctx, session); err != nil {
			uow.Rollback()
			return fmt.Errorf("save session: %w", err)
		}
	}
	if err := uow.ProcessRepository().Save(ctx, process); err != nil {
		uow.Rollback()
		return fmt.Errorf("save process: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit submission: %w", err)
	}
	return nil
}

func (s *chatbotService) CheckAnswer(ctx context.Context, sessionId, processId string) (*dto.CheckAnswerResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	process, err := uow.ProcessRepository().FindById(ctx, sessionId, processId)
	if err != nil {
		return nil, fmt.Errorf("load process: %w", err)
	}
	if process == nil {
		return nil, ErrNotFound
	}

	session, processes, err := s.loadSession(ctx, uow, sessionId)
	if err != nil {
		return nil, err
	}

	view := s.resolver.ResolveProcessView(process)
	return &dto.CheckAnswerResponse{
		Status:            s.resolver.ResolveSessionStatus(session, processes, s.now()),
		ProcessStatus:     view.Status,
		SessionId:         sessionId,
		ProcessId:         processId,
		MessageHistory:    history.BuildMessageHistory(processes),
		Responses:         history.BuildAgentResponses(view.Responses),
		RetryAfter:        view.RetryAfter,
		SolvedRequested:   view.SolvedRequested,
		ContinueRequested: view.ContinueRequested,
	}, nil
}

func (s *chatbotService) GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, processes, err := s.loadSession(ctx, uow, sessionId)
	if err != nil {
		return nil, err
	}
	return s.sessionView(session, processes), nil
}

func (s *chatbotService) Rate(ctx context.Context, sessionId string, rating int) (*dto.SessionResponse, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	res, err := s.mutate(ctx, sessionId, func(session *entity.Session, current string) error {
		if current == constant.SessionStatusProcessing || session.Rating != nil {
			return ErrConflict
		}
		session.Rating = &rating
		session.Status = constant.SessionStatusTerminated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.SessionRated(ctx, sessionId, rating)
	}
	return res, nil
}

func (s *chatbotService) MarkSolved(ctx context.Context, sessionId, solved string) (*dto.SessionResponse, error) {
	if !constant.IsValidSolved(solved) {
		return nil, fmt.Errorf("%w: solved must be one of yes, no, partially", ErrValidation)
	}

	res, err := s.mutate(ctx, sessionId, func(session *entity.Session, current string) error {
		if current == constant.SessionStatusProcessing {
			return ErrConflict
		}
		session.Solved = &solved
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.SessionSolved(ctx, sessionId, solved)
	}
	return res, nil
}

func (s *chatbotService) Abort(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	res, err := s.mutate(ctx, sessionId, func(session *entity.Session, current string) error {
		if current == constant.SessionStatusProcessing || constant.IsTerminalSessionStatus(current) {
			return ErrConflict
		}
		session.Status = constant.SessionStatusAborted
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.SessionAborted(ctx, sessionId)
	}
	return res, nil
}

// mutate runs change on a session while holding its claim, so the session
// cannot gain a running process between the status check and the write.
func (s *chatbotService) mutate(ctx context.Context, sessionId string, change func(session *entity.Session, current string) error) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	owner := "mutation-" + uuid.NewString()
	if err := s.acquire(ctx, uow, sessionId, owner, mutationClaimTTL); err != nil {
		return nil, err
	}
	defer s.release(ctx, sessionId, owner)

	session, processes, err := s.loadSession(ctx, uow, sessionId)
	if err != nil {
		return nil, err
	}

	current := s.resolver.ResolveSessionStatus(session, processes, s.now())
	if err := change(session, current); err != nil {
		return nil, err
	}

	if err := uow.SessionRepository().Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s.sessionView(session, processes), nil
}

func (s *chatbotService) claim(ctx context.Context, sessionId, owner string) error {
	ok, err := s.claimer.TryClaim(ctx, sessionId, owner, s.resolver.SessionTimeout())
	if err != nil {
		return fmt.Errorf("claim session: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// acquire claims an existing session for owner. The stored records stay the
// source of truth: a session that resolves to processing is a Conflict at
// once, and a claim left behind by a finished process or on an expired
// session is taken over. Any other holder is a request still in flight and
// gets a short grace period before the attempt fails.
func (s *chatbotService) acquire(ctx context.Context, uow unitofwork.UnitOfWork, sessionId, owner string, ttl time.Duration) error {
	for attempt := 1; ; attempt++ {
		ok, err := s.claimer.TryClaim(ctx, sessionId, owner, ttl)
		if err != nil {
			return fmt.Errorf("claim session: %w", err)
		}
		if ok {
			return nil
		}

		holder, err := s.claimer.Holder(ctx, sessionId)
		if err != nil {
			return fmt.Errorf("read session claim: %w", err)
		}
		if holder != "" {
			session, processes, err := s.loadSession(ctx, uow, sessionId)
			if err != nil {
				return err
			}
			current := s.resolver.ResolveSessionStatus(session, processes, s.now())
			if current == constant.SessionStatusProcessing {
				return ErrConflict
			}
			if current == constant.SessionStatusExpired || finishedProcess(processes, holder) {
				ok, err := s.claimer.Replace(ctx, sessionId, holder, owner, ttl)
				if err != nil {
					return fmt.Errorf("take over session claim: %w", err)
				}
				if ok {
					s.log.Warn("CHATBOT", "Took over stale session claim", map[string]interface{}{
						"session_id": sessionId,
						"holder":     holder,
					})
					return nil
				}
			}
		}

		if attempt >= claimAttempts {
			return ErrConflict
		}
		if err := sleepCtx(ctx, claimRetryDelay); err != nil {
			return err
		}
	}
}

// handOver moves a held claim from one owner to another in one step.
func (s *chatbotService) handOver(ctx context.Context, sessionId, from, to string) error {
	ok, err := s.claimer.Replace(ctx, sessionId, from, to, s.resolver.SessionTimeout())
	if err != nil {
		s.release(ctx, sessionId, from)
		return fmt.Errorf("hand over session claim: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *chatbotService) release(ctx context.Context, sessionId, owner string) {
	if err := s.claimer.Release(ctx, sessionId, owner); err != nil {
		s.log.Warn("CHATBOT", "Failed to release session claim", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
}

func (s *chatbotService) loadSession(ctx context.Context, uow unitofwork.UnitOfWork, sessionId string) (*entity.Session, []*entity.Process, error) {
	session, err := uow.SessionRepository().FindById(ctx, sessionId)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, nil, ErrNotFound
	}
	processes, err := uow.ProcessRepository().FindAllBySessionId(ctx, sessionId)
	if err != nil {
		return nil, nil, fmt.Errorf("load processes: %w", err)
	}
	return session, processes, nil
}

func (s *chatbotService) sessionView(session *entity.Session, processes []*entity.Process) *dto.SessionResponse {
	return &dto.SessionResponse{
		Id:             session.Id,
		AgentId:        session.AgentId,
		Version:        session.Version,
		SourcePage:     session.SourcePage,
		Status:         s.resolver.ResolveSessionStatus(session, processes, s.now()),
		Rating:         session.Rating,
		Solved:         session.Solved,
		CreatedAt:      session.CreatedAt.UnixMilli(),
		LastActivityAt: session.LastActivityAt.UnixMilli(),
		MessageHistory: history.BuildMessageHistory(processes),
		ComputeHistory: history.BuildComputeHistory(processes),
	}
}

func (s *chatbotService) newSession(agentId string, sourcePage *string, now time.Time) *entity.Session {
	return &entity.Session{
		Id:             strings.ReplaceAll(uuid.NewString(), "-", ""),
		AgentId:        agentId,
		Version:        s.agents.GetVersion(agentId),
		SourcePage:     sourcePage,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

func finishedProcess(processes []*entity.Process, id string) bool {
	for _, p := range processes {
		if p.Id == id {
			return p.Status != constant.ProcessStatusProcessing
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextProcessId keeps ids strictly increasing within a session even when two
// submissions land in the same millisecond.
func nextProcessId(id string, latest *entity.Process) string {
	if latest == nil {
		return id
	}
	prev, err := strconv.ParseInt(latest.Id, 10, 64)
	if err != nil {
		return id
	}
	if cur, _ := strconv.ParseInt(id, 10, 64); cur <= prev {
		return strconv.FormatInt(prev+1, 10)
	}
	return id
}
