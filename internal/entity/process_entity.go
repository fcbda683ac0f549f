package entity

import (
	"strconv"
	"time"
)

// Process is a single query execution inside a session. Its Id is the
// submission time in unix milliseconds.
type Process struct {
	Id                string
	SessionId         string
	Query             string
	Status            string
	Agent             string
	StartedAt         time.Time
	Responses         []ProcessResponse
	SolvedRequested   bool
	ContinueRequested bool
}

type ProcessResponse struct {
	ResponseId  string
	CreatedAt   time.Time
	Text        string
	RichContent *RichContent
}

// RichContent is the page metadata attached to a response that cites a source.
type RichContent struct {
	Type        string    `json:"type,omitempty"`
	Target      string    `json:"target"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Timestamp   time.Time `json:"timestamp"`
}

// Timestamp returns the submission time encoded in the process id, falling
// back to StartedAt when the id is not numeric.
func (p *Process) Timestamp() time.Time {
	if ms, err := strconv.ParseInt(p.Id, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	return p.StartedAt
}

func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	c := *p
	if p.Responses != nil {
		c.Responses = make([]ProcessResponse, len(p.Responses))
		for i, r := range p.Responses {
			c.Responses[i] = r
			if r.RichContent != nil {
				rc := *r.RichContent
				c.Responses[i].RichContent = &rc
			}
		}
	}
	return &c
}

// NewProcessId formats t as a process id.
func NewProcessId(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
