// Package question defines practice questions and the catalog gateway the
// selector draws from.
package question

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when no question has the requested id.
var ErrNotFound = errors.New("question not found")

// Question is a single practice item belonging to exactly one skill.
type Question struct {
	ID            int      `json:"id"`
	Skill         string   `json:"skill"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Excluded reports ids that must not be returned.
type Excluded interface {
	Contains(id int) bool
}

// Catalog is the read-only question source.
type Catalog interface {
	// QuestionsFor returns the questions of skill whose ids are not excluded.
	// An empty result is not an error.
	QuestionsFor(ctx context.Context, skill string, exclude Excluded) ([]Question, error)

	// FindByID returns the question with id, or ErrNotFound.
	FindByID(ctx context.Context, id int) (Question, error)
}

// Check reports whether answer matches the question's correct answer.
// Surrounding whitespace is ignored; the comparison is otherwise exact.
func Check(q Question, answer string) bool {
	return strings.TrimSpace(answer) == strings.TrimSpace(q.CorrectAnswer)
}

// IsMultipleChoice reports whether the question offers fixed options.
func (q Question) IsMultipleChoice() bool {
	return len(q.Options) > 0
}
