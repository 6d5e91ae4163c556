package question

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCatalog is an in-memory Catalog. Questions of a skill are returned in
// the order they were loaded. Safe for concurrent use; Replace swaps the whole
// bank atomically.
type MemoryCatalog struct {
	mu      sync.RWMutex
	byID    map[int]Question
	bySkill map[string][]Question
}

// NewMemoryCatalog builds a catalog from qs.
func NewMemoryCatalog(qs []Question) (*MemoryCatalog, error) {
	c := &MemoryCatalog{}
	if err := c.Replace(qs); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace validates qs and swaps it in. On error the previous bank is kept.
func (c *MemoryCatalog) Replace(qs []Question) error {
	byID := make(map[int]Question, len(qs))
	bySkill := make(map[string][]Question)
	for _, q := range qs {
		if q.Skill == "" {
			return fmt.Errorf("question %d has no skill", q.ID)
		}
		if _, dup := byID[q.ID]; dup {
			return fmt.Errorf("duplicate question id %d", q.ID)
		}
		byID[q.ID] = q
		bySkill[q.Skill] = append(bySkill[q.Skill], q)
	}

	c.mu.Lock()
	c.byID = byID
	c.bySkill = bySkill
	c.mu.Unlock()
	return nil
}

func (c *MemoryCatalog) QuestionsFor(_ context.Context, skill string, exclude Excluded) ([]Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Question
	for _, q := range c.bySkill[skill] {
		if exclude != nil && exclude.Contains(q.ID) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (c *MemoryCatalog) FindByID(_ context.Context, id int) (Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.byID[id]
	if !ok {
		return Question{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	return q, nil
}

// Len returns the number of questions in the bank.
func (c *MemoryCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// CountBySkill returns how many questions each skill has.
func (c *MemoryCatalog) CountBySkill() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int, len(c.bySkill))
	for skill, qs := range c.bySkill {
		out[skill] = len(qs)
	}
	return out
}
