package hermes

import "time"

const (
	// SessionSubjectPrefix is followed by the session event type, e.g.
	// advocate.session.game.won.
	SessionSubjectPrefix = "advocate.session."

	SubjectEvaluationCompleted = "advocate.evaluation.completed"
	SubjectCommitteeCompleted  = "advocate.committee.completed"
	// SubjectCommitteeRequested carries CommitteeRequest payloads from other agents.
	SubjectCommitteeRequested = "advocate.committee.requested"
	SubjectAgentRegistered    = "swarm.agent.advocate.registered"
)

func SessionSubject(eventType string) string {
	return SessionSubjectPrefix + eventType
}

// SessionEvent is published for every session state transition.
type SessionEvent struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	Mode       string    `json:"mode"`
	Reason     string    `json:"reason,omitempty"`
	Status     string    `json:"status"`
	TurnsUsed  int       `json:"turns_used"`
	MaxTurns   int       `json:"max_turns"`
	Score      int       `json:"score"`
	Streak     int       `json:"streak"`
	Convinced  *bool     `json:"convinced,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Rule       string    `json:"rule,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type EvaluationCompleted struct {
	SessionID string         `json:"session_id"`
	Scores    map[string]int `json:"scores"`
	Apologies int            `json:"apologies"`
	Hedges    int            `json:"hedges"`
	Asks      int            `json:"explicit_asks"`
	Timestamp time.Time      `json:"timestamp"`
}

type CommitteeCompleted struct {
	RequestID string    `json:"request_id"`
	DealName  string    `json:"deal_name"`
	Rounds    int       `json:"rounds"`
	Comments  int       `json:"comments"`
	FileName  string    `json:"file_name"`
	SlackTS   string    `json:"slack_ts,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CommitteeRequest struct {
	RequestID string `json:"request_id"`
	Memo      string `json:"memo"`
	DealName  string `json:"deal_name"`
	Rounds    int    `json:"rounds"`
	Crossfire bool   `json:"crossfire"`
}

type AgentRegistered struct {
	Timestamp string `json:"timestamp"`
	Port      int    `json:"port"`
	Model     string `json:"model"`
	Profile   string `json:"judge_profile"`
	Scoring   string `json:"scoring"`
}
