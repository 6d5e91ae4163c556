package practice

import (
	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/session"
)

// readyMsg reports that the learner's session exists.
type readyMsg struct {
	sessionID string
	standings []mastery.Entry
	err       error
}

// nextMsg carries the outcome of a next-question request.
type nextMsg struct {
	next session.Next
	err  error
}

// resultMsg carries the outcome of a submitted answer.
type resultMsg struct {
	result session.Result
	err    error
}
