// Package status derives the visible state of sessions and processes from
// their stored records. Nothing here performs I/O.
package status

import (
	"time"

	"ai-chatbot-be/internal/constant"
	"ai-chatbot-be/internal/entity"
)

type Resolver struct {
	sessionTimeout    time.Duration
	retryAfterSeconds int
}

func NewResolver(sessionTimeout time.Duration, retryAfterSeconds int) *Resolver {
	return &Resolver{
		sessionTimeout:    sessionTimeout,
		retryAfterSeconds: retryAfterSeconds,
	}
}

func (r *Resolver) SessionTimeout() time.Duration {
	return r.sessionTimeout
}

func (r *Resolver) RetryAfterSeconds() int {
	return r.retryAfterSeconds
}

// ResolveSessionStatus applies, in order: stored terminal override, expiry,
// no processes, any process still running, otherwise active.
func (r *Resolver) ResolveSessionStatus(session *entity.Session, processes []*entity.Process, now time.Time) string {
	if constant.IsTerminalSessionStatus(session.Status) {
		return session.Status
	}
	if r.IsExpired(session, LatestProcess(processes), now) {
		return constant.SessionStatusExpired
	}
	if len(processes) == 0 {
		return constant.SessionStatusInit
	}
	for _, p := range processes {
		if p.Status == constant.ProcessStatusProcessing {
			return constant.SessionStatusProcessing
		}
	}
	return constant.SessionStatusActive
}

// IsExpired measures idle time from the most recent process, or from the
// session creation when there is none. Exactly the timeout is still alive.
func (r *Resolver) IsExpired(session *entity.Session, latest *entity.Process, now time.Time) bool {
	reference := session.CreatedAt
	if latest != nil {
		reference = latest.Timestamp()
	}
	return now.Sub(reference) > r.sessionTimeout
}

// ProcessView is what a poller sees of one process.
type ProcessView struct {
	Status            string
	RetryAfter        *int
	Responses         []entity.ProcessResponse
	SolvedRequested   bool
	ContinueRequested bool
}

func (r *Resolver) ResolveProcessView(process *entity.Process) ProcessView {
	if process.Status == constant.ProcessStatusProcessing {
		retryAfter := r.retryAfterSeconds
		return ProcessView{
			Status:     constant.ProcessStatusProcessing,
			RetryAfter: &retryAfter,
			Responses:  []entity.ProcessResponse{},
		}
	}
	responses := process.Responses
	if responses == nil {
		responses = []entity.ProcessResponse{}
	}
	return ProcessView{
		Status:            process.Status,
		Responses:         responses,
		SolvedRequested:   process.SolvedRequested,
		ContinueRequested: process.ContinueRequested,
	}
}

// LatestProcess returns the process with the newest timestamp, or nil.
func LatestProcess(processes []*entity.Process) *entity.Process {
	var latest *entity.Process
	for _, p := range processes {
		if latest == nil {
			latest = p
			continue
		}
		pt, lt := p.Timestamp(), latest.Timestamp()
		if pt.After(lt) || (pt.Equal(lt) && p.Id > latest.Id) {
			latest = p
		}
	}
	return latest
}
