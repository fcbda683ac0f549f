package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"ai-chatbot-be/internal/config"
	"ai-chatbot-be/internal/controller"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/internal/service"
	"ai-chatbot-be/pkg/agent"
	"ai-chatbot-be/pkg/answer"
	"ai-chatbot-be/pkg/cache"
	"ai-chatbot-be/pkg/conversation/claim"
	"ai-chatbot-be/pkg/conversation/worker"
	"ai-chatbot-be/pkg/events"
	"ai-chatbot-be/pkg/events/bus"
	"ai-chatbot-be/pkg/llm/factory"
	pktNats "ai-chatbot-be/pkg/nats"
	"ai-chatbot-be/pkg/richcontent"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	Executor        *worker.Executor

	Agents *agent.Registry
	Logger logger.ILogger

	closers []func() error
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	uowFactory, closeStorage, err := NewRepositoryFactory(cfg)
	if err != nil {
		return nil, err
	}
	c := &Container{Logger: sysLogger, closers: []func() error{closeStorage}}

	agents, err := agent.LoadRegistry(cfg.Chat.AgentsFile)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("load agents: %w", err)
	}
	c.Agents = agents

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)

	var publisher events.Publisher = bus.NewPublisher(pubSub, bus.Topic)
	if cfg.App.EventBus == "nats" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v. Falling back to in-process bus", err)
		} else {
			publisher = natsPub
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}
	lifecycle := events.NewLifecyclePublisher(publisher, sysLogger)

	eventLogger := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	consumerService := service.NewConsumerService(pubSub, bus.Topic, eventLogger)

	// 3. Session claims
	claimer, err := newClaimer(cfg, c)
	if err != nil {
		c.Close()
		return nil, err
	}

	// 4. Answer generation
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	cacheStore := newCacheStore(cfg, uowFactory, sysLogger)
	generator := answer.NewGenerator(llmProvider, cacheStore, agents, cfg.Chat.ConversationMemoryTTL(), sysLogger)
	richContent := richcontent.NewManager(cacheStore, &http.Client{Timeout: 10 * time.Second}, cfg.Chat.RichContentTTL(), sysLogger)

	// 5. Workers
	executor := worker.NewExecutor(sysLogger)
	workerFactory := worker.NewDefaultFactory(worker.Dependencies{
		UowFactory:  uowFactory,
		Generator:   generator,
		RichContent: richContent,
		Agents:      agents,
		Claimer:     claimer,
		Events:      lifecycle,
		Logger:      sysLogger,
	})

	chatbotService := service.NewChatbotService(
		uowFactory,
		agents,
		executor,
		workerFactory,
		claimer,
		lifecycle,
		sysLogger,
		cfg.Chat.SessionTimeout(),
		cfg.Chat.RetryAfterSeconds,
	)

	c.ChatbotController = controller.NewChatbotController(chatbotService)
	c.ConsumerService = consumerService
	c.Executor = executor
	return c, nil
}

// newCacheStore builds the cache store over the configured storage.
func newCacheStore(cfg *config.Config, uowFactory unitofwork.RepositoryFactory, log logger.ILogger) *cache.Store {
	repo := uowFactory.NewUnitOfWork(context.Background()).CacheRepository()
	return cache.NewStore(repo, log, cache.WithCleaningProbability(cfg.Chat.CacheCleaningProbability))
}

func newClaimer(cfg *config.Config, c *Container) (claim.Claimer, error) {
	if cfg.App.SessionClaim != "redis" {
		return claim.NewMemoryClaimer(nil), nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.closers = append(c.closers, rdb.Close)
	return claim.NewRedisClaimer(rdb), nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] Failed to close resource: %v", err)
		}
	}
	c.closers = nil
}
