package dto

import (
	"ai-chatbot-be/pkg/conversation/history"
)

type HelloResponse struct {
	Message  string                 `json:"message"`
	UIParams map[string]interface{} `json:"ui_params,omitempty"`
}

type SubmitQueryRequest struct {
	Query   string  `json:"query" validate:"required,max=4000"`
	SrcPage *string `json:"src_page" validate:"omitempty,url"`
}

type SubmitQueryResponse struct {
	Status     string `json:"status"`
	SessionId  string `json:"session_id"`
	ProcessId  string `json:"process_id"`
	RetryAfter *int   `json:"retry_after"`
}

type CheckAnswerResponse struct {
	Status            string                  `json:"status"`
	ProcessStatus     string                  `json:"process_status"`
	SessionId         string                  `json:"session_id"`
	ProcessId         string                  `json:"process_id"`
	MessageHistory    []history.Message       `json:"message_history"`
	Responses         []history.AgentResponse `json:"responses"`
	RetryAfter        *int                    `json:"retry_after,omitempty"`
	SolvedRequested   bool                    `json:"solved_requested"`
	ContinueRequested bool                    `json:"continue_requested"`
}

type SessionResponse struct {
	Id             string                          `json:"id"`
	AgentId        string                          `json:"agent_id"`
	Version        string                          `json:"version"`
	SourcePage     *string                         `json:"src_page,omitempty"`
	Status         string                          `json:"status"`
	Rating         *int                            `json:"rating,omitempty"`
	Solved         *string                         `json:"solved,omitempty"`
	CreatedAt      int64                           `json:"timestamp"`
	LastActivityAt int64                           `json:"last_activity"`
	MessageHistory []history.Message               `json:"message_history"`
	ComputeHistory map[string]history.ComputeEntry `json:"compute_history"`
}

type RateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type SolvedRequest struct {
	Solved string `json:"solved" validate:"required,oneof=yes no partially"`
}
