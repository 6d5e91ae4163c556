package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/question"
)

// Selection is the outcome of asking for the next question. When Complete
// is set no question remains for any skill and Question is zero.
type Selection struct {
	Question  question.Question
	Complete  bool
	Standings []mastery.Entry
}

// Selector picks the next question for the weakest skill that still has an
// unanswered one.
type Selector struct {
	questions question.Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector over questions. rng may be nil, in which
// case the global source is used.
func NewSelector(questions question.Catalog, rng *rand.Rand) *Selector {
	return &Selector{questions: questions, rng: rng}
}

// Next walks skills from weakest to strongest and returns a uniformly random
// unanswered question of the first skill that has any.
func (s *Selector) Next(ctx context.Context, state *mastery.State, answered AnsweredSet) (Selection, error) {
	standings := state.Snapshot()

	for _, entry := range standings {
		candidates, err := s.questions.QuestionsFor(ctx, entry.Skill, answered)
		if err != nil {
			return Selection{}, fmt.Errorf("questions for %q: %w", entry.Skill, err)
		}

		var eligible []question.Question
		for _, q := range candidates {
			if !answered.Contains(q.ID) {
				eligible = append(eligible, q)
			}
		}
		if len(eligible) == 0 {
			continue
		}

		return Selection{
			Question:  eligible[s.intN(len(eligible))],
			Standings: standings,
		}, nil
	}

	return Selection{Complete: true, Standings: standings}, nil
}

func (s *Selector) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
