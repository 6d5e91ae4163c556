package store

import (
	"context"
	"time"

	"github.com/abhisek/skillpath/internal/mastery"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Learner string    // exact learner match, answer and session events only
}

// Session event actions.
const (
	ActionInitialize = "initialize"
	ActionReset      = "reset"
	ActionComplete   = "complete"
	ActionEnd        = "end"
)

// SessionEventData captures a session lifecycle transition.
type SessionEventData struct {
	SessionID       string
	Learner         string
	Action          string
	QuestionsServed int
	CorrectAnswers  int
	DurationSecs    int
}

// SessionEvent is a persisted SessionEventData.
type SessionEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	SessionEventData
}

// AnswerEventData captures one graded submission and its mastery effect.
type AnswerEventData struct {
	SessionID     string
	Learner       string
	QuestionID    int
	Skill         string
	LearnerAnswer string
	CorrectAnswer string
	Correct       bool
	Tracked       bool
	MasteryBefore float64
	MasteryAfter  float64
}

// AnswerEvent is a persisted AnswerEventData.
type AnswerEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	AnswerEventData
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a persisted LLMRequestEventData.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMRequestRecorder is the narrow sink the LLM layer writes to.
type LLMRequestRecorder interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	LLMRequestRecorder

	// AppendSessionEvent records a session lifecycle transition.
	AppendSessionEvent(ctx context.Context, data SessionEventData) error

	// AppendAnswerEvent records a graded answer.
	AppendAnswerEvent(ctx context.Context, data AnswerEventData) error

	// QuerySessionEvents returns session events, newest first.
	QuerySessionEvents(ctx context.Context, opts QueryOpts) ([]SessionEvent, error)

	// QueryAnswerEvents returns answer events, newest first.
	QueryAnswerEvents(ctx context.Context, opts QueryOpts) ([]AnswerEvent, error)

	// QueryLLMEvents returns LLM request events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns a single LLM event by ID, or nil if absent.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// Purge deletes every event and snapshot and rewinds the sequence.
	// The question bank is kept.
	Purge(ctx context.Context) error
}

// Snapshot is a learner's standings captured when a session ends.
type Snapshot struct {
	ID        int
	Timestamp time.Time
	SessionID string
	Learner   string
	Standings []mastery.Entry
}

// SnapshotRepo manages learner standings snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot for learner, or nil if none exist.
	Latest(ctx context.Context, learner string) (*Snapshot, error)

	// Prune deletes all but the keep most recent snapshots of learner.
	Prune(ctx context.Context, learner string, keep int) error
}
