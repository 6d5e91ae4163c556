package mastery

import "fmt"

// Default step sizes applied after each answer.
const (
	DefaultCorrectStep   = 0.05
	DefaultIncorrectStep = -0.025
)

// Updater applies the bounded linear update rule to a State.
type Updater struct {
	CorrectStep   float64
	IncorrectStep float64
}

// DefaultUpdater returns an Updater with the default step sizes.
func DefaultUpdater() Updater {
	return Updater{
		CorrectStep:   DefaultCorrectStep,
		IncorrectStep: DefaultIncorrectStep,
	}
}

// Adjustment records the effect of one answer on a skill.
type Adjustment struct {
	Skill   string
	Correct bool
	Tracked bool
	Before  float64
	After   float64
}

// Delta returns the applied change after clamping.
func (a Adjustment) Delta() float64 {
	return a.After - a.Before
}

// Apply moves the skill's probability by the step for the verdict and clamps
// the result. Untracked skills are left alone and reported with Tracked=false.
func (u Updater) Apply(s *State, skill string, correct bool) (Adjustment, error) {
	adj := Adjustment{Skill: skill, Correct: correct}
	before, err := s.Get(skill)
	if err != nil {
		return adj, nil
	}
	adj.Tracked = true
	adj.Before = before

	step := u.IncorrectStep
	if correct {
		step = u.CorrectStep
	}
	if err := s.Set(skill, before+step); err != nil {
		adj.After = before
		return adj, fmt.Errorf("apply answer: %w", err)
	}
	adj.After, _ = s.Get(skill)
	return adj, nil
}
