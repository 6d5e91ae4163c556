// Package session drives adaptive practice: one Session per learner holding
// its mastery state and answered questions, a Selector that serves the
// weakest skill first, and a Manager that owns session lifecycles.
package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/skillpath/internal/catalog"
	"github.com/abhisek/skillpath/internal/mastery"
)

var (
	// ErrPredictorUnavailable means initial mastery could not be produced
	// for every skill. No session state was changed.
	ErrPredictorUnavailable = errors.New("predictor unavailable")

	// ErrQuestionNotFound is returned when an answer names an unknown question.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrNoSession is returned for learners without an active session.
	ErrNoSession = errors.New("no active session")
)

// Status is the lifecycle position of a session.
type Status int

const (
	StatusReady Status = iota
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// AnsweredSet holds the ids of questions answered in the current session.
// It only grows until the session is re-initialized.
type AnsweredSet map[int]struct{}

// Contains reports whether id has been answered. Safe on a nil set.
func (a AnsweredSet) Contains(id int) bool {
	_, ok := a[id]
	return ok
}

// Add records id and reports whether it was new.
func (a AnsweredSet) Add(id int) bool {
	if _, ok := a[id]; ok {
		return false
	}
	a[id] = struct{}{}
	return true
}

// Len returns the number of answered ids.
func (a AnsweredSet) Len() int { return len(a) }

// IDs returns the answered ids in ascending order.
func (a AnsweredSet) IDs() []int {
	ids := make([]int, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Stats counts what happened in a session since its last initialization.
type Stats struct {
	Served   int
	Answered int
	Correct  int
}

// Session is one learner's practice state. All fields are guarded by mu;
// the Manager serializes initialize, next and submit on it.
type Session struct {
	Learner catalog.Learner

	mu        sync.Mutex
	id        string
	startedAt time.Time
	state     *mastery.State
	answered  AnsweredSet
	status    Status
	stats     Stats

	// ended is set once End has removed the session from its Manager.
	ended bool
}

// install replaces the session contents with a freshly initialized state.
// Caller holds s.mu or owns s exclusively.
func (s *Session) install(id string, state *mastery.State, now time.Time) {
	s.id = id
	s.startedAt = now
	s.state = state
	s.answered = make(AnsweredSet)
	s.status = StatusReady
	s.stats = Stats{}
}

// ID returns the identifier of the current initialization. It changes on reset.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Status returns whether the session still has questions to serve.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stats returns the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Standings returns the mastery snapshot, weakest skill first.
func (s *Session) Standings() []mastery.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Mastery returns the current probability of skill.
func (s *Session) Mastery(skill string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Get(skill)
}

// Answered returns the answered question ids in ascending order.
func (s *Session) Answered() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answered.IDs()
}
