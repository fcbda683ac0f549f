// Package answer generates agent answers with an LLM provider, keeping a
// short conversation memory per session in the cache store.
package answer

import (
	"context"
	"fmt"
	"time"

	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/pkg/cache"
	"ai-chatbot-be/pkg/llm"
)

const (
	DefaultMemoryTTL  = 30 * time.Minute
	DefaultMaxHistory = 20
)

type AgentSettings interface {
	GetMaxHistory(agentID string) int
	GetSystemPrompt(agentID string) string
}

type Generator struct {
	provider  llm.LLMProvider
	store     *cache.Store
	agents    AgentSettings
	memoryTTL time.Duration
	log       logger.ILogger
}

func NewGenerator(provider llm.LLMProvider, store *cache.Store, agents AgentSettings, memoryTTL time.Duration, log logger.ILogger) *Generator {
	if memoryTTL <= 0 {
		memoryTTL = DefaultMemoryTTL
	}
	return &Generator{
		provider:  provider,
		store:     store,
		agents:    agents,
		memoryTTL: memoryTTL,
		log:       log,
	}
}

// MemoryKey is the cache key of a session's conversation memory.
func MemoryKey(agentID, sessionID string) string {
	return agentID + "-" + sessionID
}

// GenerateAnswer sends the query with the session's remembered exchanges and
// stores the new exchange. The source reference is always nil because the
// provider does not retrieve documents.
func (g *Generator) GenerateAnswer(ctx context.Context, agentID, sessionID, query string) (string, *string, error) {
	key := MemoryKey(agentID, sessionID)

	var memory []llm.Message
	if _, err := g.store.GetJSON(ctx, key, &memory); err != nil {
		return "", nil, fmt.Errorf("load conversation memory: %w", err)
	}

	history := make([]llm.Message, 0, len(memory)+2)
	if prompt := g.agents.GetSystemPrompt(agentID); prompt != "" {
		history = append(history, llm.Message{Role: llm.RoleSystem, Content: prompt})
	}
	history = append(history, memory...)
	history = append(history, llm.Message{Role: llm.RoleUser, Content: query})

	answer, err := g.provider.Chat(ctx, history)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}

	memory = append(memory,
		llm.Message{Role: llm.RoleUser, Content: query},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	memory = trim(memory, g.maxHistory(agentID))

	if err := g.store.SaveJSON(ctx, key, memory, g.memoryTTL); err != nil {
		// The answer is still good; the next query just starts with less context.
		g.log.Warn("ANSWER", "Failed to save conversation memory", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
	return answer, nil, nil
}

func (g *Generator) maxHistory(agentID string) int {
	if n := g.agents.GetMaxHistory(agentID); n > 0 {
		return n
	}
	return DefaultMaxHistory
}

// trim keeps the newest max messages.
func trim(messages []llm.Message, max int) []llm.Message {
	if len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}
