package history

import (
	"time"

	"ai-chatbot-be/internal/entity"
)

type AgentResponse struct {
	ResponseId  string              `json:"response_id"`
	CreatedAt   time.Time           `json:"created"`
	Response    string              `json:"response"`
	RichContent *entity.RichContent `json:"rich_content,omitempty"`
}

// Message pairs a user query with the agent responses it produced.
type Message struct {
	ProcessId string          `json:"process_id"`
	User      string          `json:"user"`
	Agent     []AgentResponse `json:"agent"`
}

type ComputeEntry struct {
	Id                string          `json:"id"`
	SessionId         string          `json:"session_id"`
	Query             string          `json:"query"`
	Status            string          `json:"status"`
	Agent             string          `json:"agent"`
	StartedAt         time.Time       `json:"started_at"`
	Responses         []AgentResponse `json:"responses"`
	SolvedRequested   bool            `json:"solved_requested"`
	ContinueRequested bool            `json:"continue_requested"`
}

func BuildAgentResponses(responses []entity.ProcessResponse) []AgentResponse {
	result := make([]AgentResponse, 0, len(responses))
	for _, r := range responses {
		if r.Text == "" {
			continue
		}
		result = append(result, AgentResponse{
			ResponseId:  r.ResponseId,
			CreatedAt:   r.CreatedAt,
			Response:    r.Text,
			RichContent: r.RichContent,
		})
	}
	return result
}

// BuildMessageHistory expects processes ordered oldest first.
func BuildMessageHistory(processes []*entity.Process) []Message {
	messages := make([]Message, 0, len(processes))
	for _, p := range processes {
		messages = append(messages, Message{
			ProcessId: p.Id,
			User:      p.Query,
			Agent:     BuildAgentResponses(p.Responses),
		})
	}
	return messages
}

func BuildComputeHistory(processes []*entity.Process) map[string]ComputeEntry {
	result := make(map[string]ComputeEntry, len(processes))
	for _, p := range processes {
		result[p.Id] = ComputeEntry{
			Id:                p.Id,
			SessionId:         p.SessionId,
			Query:             p.Query,
			Status:            p.Status,
			Agent:             p.Agent,
			StartedAt:         p.StartedAt,
			Responses:         BuildAgentResponses(p.Responses),
			SolvedRequested:   p.SolvedRequested,
			ContinueRequested: p.ContinueRequested,
		}
	}
	return result
}
