package domain

import "time"

// Collections and field names of the remote document store.
const (
	CollectionUsers       = "users"
	CollectionLeaderboard = "leaderboard"

	FieldStartedAt   = "startedAt"
	FieldPhoneNumber = "phoneNumber"
	FieldScore       = "score"
	FieldCompletedAt = "completedAt"
	FieldUserAgent   = "userAgent"
	FieldName        = "name"
	FieldTimestamp   = "timestamp"
)

// Navigation targets.
const (
	PathEntry     = "/"
	PathCompleted = "/completed"
)

// Document is a JSON-like record held by the remote store.
type Document map[string]any

// Question is a single escape room prompt. Solution is matched verbatim.
type Question struct {
	Prompt   string   `json:"prompt" yaml:"prompt"`
	Options  []string `json:"options" yaml:"options"`
	Solution string   `json:"solution" yaml:"solution"`
	Points   int      `json:"points,omitempty" yaml:"points"` // defaults to 1 if zero
}

// Weight returns the score awarded for a correct answer.
func (q Question) Weight() int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// QuestionSet is the ordered sequence of questions played in one session.
type QuestionSet struct {
	ID        string     `json:"id" yaml:"id"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// AuthState mirrors the identity provider: unresolved, signed out (Identity nil) or signed in.
type AuthState struct {
	Resolved bool
	Identity *Identity
}

// SignedIn reports whether the state is resolved with a user.
func (s AuthState) SignedIn() bool {
	return s.Resolved && s.Identity != nil
}

// Navigation asks the view to move to another page.
type Navigation struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
}

// Position is the marker offset in pixels from the bottom-left corner of the game area.
type Position struct {
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
}

// SessionState is the per-view game state. It is never persisted.
type SessionState struct {
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
	ResponseDraft        string `json:"responseDraft"`
	Authenticated        bool   `json:"authenticated"`
	AuthResolved         bool   `json:"authResolved"`
	SequenceComplete     bool   `json:"sequenceComplete"`
	QuestionOpen         bool   `json:"questionOpen"`
	Finalized            bool   `json:"finalized"`
	Score                int    `json:"score"`
	TotalQuestions       int    `json:"totalQuestions"`
}

// LeaderboardEntry is written once per finished run.
type LeaderboardEntry struct {
	Score       int
	DisplayName string
	Timestamp   time.Time
}

// Fields renders the entry as a leaderboard document.
func (e LeaderboardEntry) Fields() Document {
	return Document{
		FieldScore:     e.Score,
		FieldName:      e.DisplayName,
		FieldTimestamp: e.Timestamp,
	}
}
