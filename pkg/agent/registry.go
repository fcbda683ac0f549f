// Package agent holds the per-API-key agent configuration loaded from the
// agents file.
package agent

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"ai-chatbot-be/internal/constant"

	"gopkg.in/yaml.v3"
)

const (
	Authorized   = "authorized"
	Unauthorized = "unauthorized"
	Forbidden    = "forbidden"
)

type Agent struct {
	Id              string                 `yaml:"id" json:"id"`
	Name            string                 `yaml:"name" json:"name"`
	Version         string                 `yaml:"version" json:"version"`
	IsActive        bool                   `yaml:"is_active" json:"is_active"`
	DefaultResponse string                 `yaml:"default_response" json:"default_response"`
	AgentMode       string                 `yaml:"agent_mode" json:"agent_mode"`
	UIParams        map[string]interface{} `yaml:"ui_params" json:"ui_params"`
	MaxHistory      int                    `yaml:"max_history" json:"max_history"`
	Origins         []string               `yaml:"origins" json:"origins"`
	SystemPrompt    string                 `yaml:"system_prompt" json:"system_prompt"`
}

// Registry maps API keys to agents. Lookups by agent id and by API key are
// both supported; an agent without an id is identified by its key.
type Registry struct {
	path string

	mu    sync.RWMutex
	byKey map[string]*Agent
	byId  map[string]*Agent
}

// LoadRegistry reads the agents file at path. The file is a mapping from API
// key to agent, in YAML or JSON.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRegistry builds a registry from agents keyed by API key.
func NewRegistry(agents map[string]Agent) *Registry {
	r := &Registry{}
	r.set(agents)
	return r
}

func (r *Registry) Path() string {
	return r.path
}

// Reload re-reads the agents file. On error the current agents are kept.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read agents file: %w", err)
	}

	var agents map[string]Agent
	if err := yaml.Unmarshal(data, &agents); err != nil {
		return fmt.Errorf("parse agents file: %w", err)
	}
	if len(agents) == 0 {
		return fmt.Errorf("agents file %s defines no agents", r.path)
	}

	r.set(agents)
	return nil
}

func (r *Registry) set(agents map[string]Agent) {
	byKey := make(map[string]*Agent, len(agents))
	byId := make(map[string]*Agent, len(agents))
	for key, a := range agents {
		a := a
		if a.Id == "" {
			a.Id = key
		}
		if a.AgentMode == "" {
			a.AgentMode = constant.AgentModeLLM
		}
		byKey[key] = &a
		byId[a.Id] = &a
	}

	r.mu.Lock()
	r.byKey = byKey
	r.byId = byId
	r.mu.Unlock()
}

// Authorize classifies an API key: unknown or empty keys are unauthorized,
// keys of inactive agents are forbidden.
func (r *Registry) Authorize(key string) (string, *Agent) {
	if key == "" {
		return Unauthorized, nil
	}
	r.mu.RLock()
	a, ok := r.byKey[key]
	r.mu.RUnlock()
	if !ok {
		return Unauthorized, nil
	}
	if !a.IsActive {
		return Forbidden, nil
	}
	c := *a
	return Authorized, &c
}

// Get returns a copy of the agent with the given id.
func (r *Registry) Get(agentID string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byId[agentID]
	if !ok {
		return nil, false
	}
	c := *a
	return &c, true
}

func (r *Registry) GetDefaultResponse(agentID string) string {
	if a, ok := r.Get(agentID); ok {
		return a.DefaultResponse
	}
	return ""
}

func (r *Registry) GetAgentMode(agentID string) string {
	if a, ok := r.Get(agentID); ok {
		return a.AgentMode
	}
	return constant.AgentModeLLM
}

func (r *Registry) GetVersion(agentID string) string {
	if a, ok := r.Get(agentID); ok {
		return a.Version
	}
	return ""
}

func (r *Registry) GetUIParams(agentID string) map[string]interface{} {
	if a, ok := r.Get(agentID); ok {
		return a.UIParams
	}
	return nil
}

// GetMaxHistory returns 0 when the agent sets no limit.
func (r *Registry) GetMaxHistory(agentID string) int {
	if a, ok := r.Get(agentID); ok {
		return a.MaxHistory
	}
	return 0
}

func (r *Registry) GetSystemPrompt(agentID string) string {
	if a, ok := r.Get(agentID); ok {
		return a.SystemPrompt
	}
	return ""
}

// AllowedOrigins is the sorted union of the origins of all active agents.
func (r *Registry) AllowedOrigins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, a := range r.byKey {
		if !a.IsActive {
			continue
		}
		for _, o := range a.Origins {
			seen[o] = struct{}{}
		}
	}
	origins := make([]string, 0, len(seen))
	for o := range seen {
		origins = append(origins, o)
	}
	sort.Strings(origins)
	return origins
}
