// Package catalog holds the fixed skill and learner maps loaded at startup.
//
// The skill order is the order in which skills appear in the skill map file.
// That order is the tie-break order used when two skills have the same
// mastery probability.
package catalog

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownLearner is returned when a learner name is not in the learner map.
	ErrUnknownLearner = errors.New("unknown learner")

	// ErrNoLearners is returned when a default learner is requested from an empty map.
	ErrNoLearners = errors.New("learner map is empty")
)

// Skill is a named skill and the numeric id the predictor understands.
type Skill struct {
	Name  string `json:"name"`
	ID    int    `json:"id"`
	Order int    `json:"order"`
}

// Learner is a named learner and the numeric id the predictor understands.
type Learner struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// Catalog is the read-only set of skills and learners known to the engine.
type Catalog struct {
	skills     []Skill
	skillIdx   map[string]int
	learners   []Learner
	learnerIdx map[string]int
}

// New builds a Catalog. Skill.Order is reassigned from the slice position.
func New(skills []Skill, learners []Learner) (*Catalog, error) {
	c := &Catalog{
		skillIdx:   make(map[string]int, len(skills)),
		learnerIdx: make(map[string]int, len(learners)),
	}
	for _, s := range skills {
		if s.Name == "" {
			return nil, fmt.Errorf("skill with id %d has empty name", s.ID)
		}
		if _, dup := c.skillIdx[s.Name]; dup {
			return nil, fmt.Errorf("duplicate skill %q", s.Name)
		}
		s.Order = len(c.skills)
		c.skillIdx[s.Name] = s.Order
		c.skills = append(c.skills, s)
	}
	for _, l := range learners {
		if l.Name == "" {
			return nil, fmt.Errorf("learner with id %d has empty name", l.ID)
		}
		if _, dup := c.learnerIdx[l.Name]; dup {
			return nil, fmt.Errorf("duplicate learner %q", l.Name)
		}
		c.learnerIdx[l.Name] = len(c.learners)
		c.learners = append(c.learners, l)
	}
	if len(c.skills) == 0 {
		return nil, errors.New("skill map is empty")
	}
	return c, nil
}

// Skills returns all skills in catalog order.
func (c *Catalog) Skills() []Skill {
	return slices.Clone(c.skills)
}

// SkillNames returns skill names in catalog order.
func (c *Catalog) SkillNames() []string {
	names := make([]string, len(c.skills))
	for i, s := range c.skills {
		names[i] = s.Name
	}
	return names
}

// Skill looks up a skill by name.
func (c *Catalog) Skill(name string) (Skill, bool) {
	i, ok := c.skillIdx[name]
	if !ok {
		return Skill{}, false
	}
	return c.skills[i], true
}

// Learners returns all learners in map order.
func (c *Catalog) Learners() []Learner {
	return slices.Clone(c.learners)
}

// Learner looks up a learner by name.
func (c *Catalog) Learner(name string) (Learner, error) {
	i, ok := c.learnerIdx[name]
	if !ok {
		return Learner{}, fmt.Errorf("%w: %q", ErrUnknownLearner, name)
	}
	return c.learners[i], nil
}

// DefaultLearner returns preferred when it is mapped, otherwise the first
// learner in the map.
func (c *Catalog) DefaultLearner(preferred string) (Learner, error) {
	if l, err := c.Learner(preferred); err == nil {
		return l, nil
	}
	if len(c.learners) == 0 {
		return Learner{}, ErrNoLearners
	}
	return c.learners[0], nil
}
