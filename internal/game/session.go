package game

import "time"

// State of a per-identity session. Idle means no session is stored.
type State int

const (
	StateIdle State = iota
	StateAwaitingChoice
	StateAwaitingAnswer
)

func (s State) String() string {
	switch s {
	case StateAwaitingChoice:
		return "awaiting-choice"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	default:
		return "idle"
	}
}

// QuestionType is the subtype of the last question asked.
type QuestionType string

const (
	QuestionNone        QuestionType = ""
	QuestionTruth       QuestionType = "truth"
	QuestionDare        QuestionType = "dare"
	QuestionSpicyTruth  QuestionType = "spicyTruth"
	QuestionSpicyDare   QuestionType = "spicyDare"
	QuestionExtremeDare QuestionType = "extremeDare"
)

func (q QuestionType) dareLike() bool {
	return q == QuestionDare || q == QuestionSpicyDare || q == QuestionExtremeDare
}

// Tier limits the options offered during a session.
type Tier int

const (
	TierStandard Tier = iota
	TierRestricted
)

// Session is one identity's game state. It is stored by value.
type Session struct {
	State        State
	Mode         string
	Question     QuestionType
	Tier         Tier
	Responses    int
	LastQuestion string
	StartedAt    time.Time
}

// SessionStore keeps at most one session per identity.
type SessionStore interface {
	Session(identity string) (Session, bool)
	SetSession(identity string, s Session)
	ClearSession(identity string)
}
