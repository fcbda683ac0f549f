package constant

// Session statuses. Completed, aborted and terminated are stored overrides,
// the others are derived on read.
const (
	SessionStatusInit       = "init"
	SessionStatusProcessing = "processing"
	SessionStatusActive     = "active"
	SessionStatusExpired    = "expired"
	SessionStatusCompleted  = "completed"
	SessionStatusAborted    = "aborted"
	SessionStatusTerminated = "terminated"
)

const (
	ProcessStatusProcessing = "processing"
	ProcessStatusDone       = "done"
	ProcessStatusError      = "error"
)

const (
	SolvedYes       = "yes"
	SolvedNo        = "no"
	SolvedPartially = "partially"
)

const (
	AgentModeLLM = "llm"

	RichContentTypeURL = "url"

	// FallbackResponse is used when an agent has no default response configured.
	FallbackResponse = "Sorry, I am not able to answer right now. Please try again later."
)

func IsTerminalSessionStatus(status string) bool {
	switch status {
	case SessionStatusCompleted, SessionStatusAborted, SessionStatusTerminated:
		return true
	}
	return false
}

func IsValidSolved(value string) bool {
	switch value {
	case SolvedYes, SolvedNo, SolvedPartially:
		return true
	}
	return false
}
