package entity

import "time"

// Session is one conversation with an agent. Status only holds a terminal
// override (completed, aborted, terminated); otherwise it is empty and the
// visible status is derived from the session's processes.
type Session struct {
	Id             string
	AgentId        string
	Version        string
	SourcePage     *string
	Status         string
	Rating         *int
	Solved         *string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// Touch moves LastActivityAt forward, never backward.
func (s *Session) Touch(at time.Time) {
	if at.After(s.LastActivityAt) {
		s.LastActivityAt = at
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.SourcePage != nil {
		v := *s.SourcePage
		c.SourcePage = &v
	}
	if s.Rating != nil {
		v := *s.Rating
		c.Rating = &v
	}
	if s.Solved != nil {
		v := *s.Solved
		c.Solved = &v
	}
	return &c
}
