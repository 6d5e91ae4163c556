package mastery

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrUnknownSkill is returned when a skill was never initialized in the state.
	ErrUnknownSkill = errors.New("unknown skill")

	// ErrInvalidProbability is returned for NaN or infinite probabilities.
	ErrInvalidProbability = errors.New("invalid probability")
)

// Entry is a single skill's estimated probability of a correct answer.
type Entry struct {
	Skill       string  `json:"skill"`
	Probability float64 `json:"probability"`
}

// State maps every tracked skill to its current mastery probability.
// Entries keep the order they were created in, which is the catalog order
// used to break ties when ranking.
//
// State is not safe for concurrent use; the owning session serializes access.
type State struct {
	entries []Entry
	index   map[string]int
}

// NewState builds a State from initial entries. Probabilities are clamped to
// [0, 1]. Duplicate skills and non-finite probabilities are rejected.
func NewState(initial []Entry) (*State, error) {
	s := &State{
		entries: make([]Entry, 0, len(initial)),
		index:   make(map[string]int, len(initial)),
	}
	for _, e := range initial {
		if _, dup := s.index[e.Skill]; dup {
			return nil, fmt.Errorf("duplicate skill %q", e.Skill)
		}
		if !finite(e.Probability) {
			return nil, fmt.Errorf("skill %q: %w: %v", e.Skill, ErrInvalidProbability, e.Probability)
		}
		s.index[e.Skill] = len(s.entries)
		s.entries = append(s.entries, Entry{Skill: e.Skill, Probability: Clamp(e.Probability)})
	}
	return s, nil
}

// Get returns the current probability for skill.
func (s *State) Get(skill string) (float64, error) {
	i, ok := s.index[skill]
	if !ok {
		return 0, fmt.Errorf("get %q: %w", skill, ErrUnknownSkill)
	}
	return s.entries[i].Probability, nil
}

// Set stores p for skill, clamped to [0, 1]. The stored value is left
// unchanged when p is not finite.
func (s *State) Set(skill string, p float64) error {
	i, ok := s.index[skill]
	if !ok {
		return fmt.Errorf("set %q: %w", skill, ErrUnknownSkill)
	}
	if !finite(p) {
		return fmt.Errorf("set %q: %w: %v", skill, ErrInvalidProbability, p)
	}
	s.entries[i].Probability = Clamp(p)
	return nil
}

// Tracked reports whether skill has an entry.
func (s *State) Tracked(skill string) bool {
	_, ok := s.index[skill]
	return ok
}

// Len returns the number of tracked skills.
func (s *State) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in catalog order.
func (s *State) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Snapshot returns the entries ranked weakest first. Ties keep catalog order.
func (s *State) Snapshot() []Entry {
	out := slices.Clone(s.entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		return cmp.Compare(a.Probability, b.Probability)
	})
	return out
}

// Clamp limits p to [0, 1].
func Clamp(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

func finite(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0)
}
