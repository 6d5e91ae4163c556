package session

import (
	"context"

	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/store"
)

// Recorder receives the audit trail of a session. Failures are logged by
// the Manager and never fail the operation.
type Recorder interface {
	AppendSessionEvent(ctx context.Context, data store.SessionEventData) error
	AppendAnswerEvent(ctx context.Context, data store.AnswerEventData) error
}

// Metrics observes session activity.
type Metrics interface {
	SessionInitialized(kind string)
	QuestionServed(skill string)
	AnswerApplied(skill string, correct bool)
	SessionComplete()
	PredictorFailed()
	Standings(learner string, entries []mastery.Entry)
	Forget(learner string, skills []string)
}

type nopMetrics struct{}

func (nopMetrics) SessionInitialized(string) {}
func (nopMetrics) QuestionServed(string) {}
func (nopMetrics) AnswerApplied(string, bool) {}
func (nopMetrics) SessionComplete() {}
func (nopMetrics) PredictorFailed() {}
func (nopMetrics) Standings(string, []mastery.Entry) {}
func (nopMetrics) Forget(string, []string) {}
