// Package practice is the question-and-answer screen of the terminal UI.
package practice

import (
	"context"
	"errors"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/question"
	"github.com/abhisek/skillpath/internal/router"
	"github.com/abhisek/skillpath/internal/screen"
	"github.com/abhisek/skillpath/internal/screens/report"
	"github.com/abhisek/skillpath/internal/session"
	"github.com/abhisek/skillpath/internal/ui/components"
	"github.com/abhisek/skillpath/internal/ui/layout"
)

type phase int

const (
	phaseLoading phase = iota
	phaseQuestion
	phaseSubmitting
	phaseFeedback
	phaseFailed
)

// Screen serves questions for one learner until every skill is exhausted,
// then hands over to the report screen.
type Screen struct {
	manager *session.Manager
	learner string

	phase     phase
	spinner   spinner.Model
	sessionID string
	current   question.Question
	focus     mastery.Entry
	mc        components.MultiChoice
	input     components.TextInput
	result    session.Result
	standings []mastery.Entry
	err       error
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.LearnerScoped   = (*Screen)(nil)
)

// New creates a practice screen. The learner's session is created on Init
// if it does not exist yet.
func New(manager *session.Manager, learner string) *Screen {
	return &Screen{
		manager: manager,
		learner: learner,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (s *Screen) Init() tea.Cmd {
	s.phase = phaseLoading
	return tea.Batch(s.spinner.Tick, s.ensure())
}

func (s *Screen) Title() string { return "Practice" }

func (s *Screen) Learner() string { return s.learner }

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseQuestion:
		if s.current.IsMultipleChoice() {
			return []layout.KeyHint{
				{Key: "↑↓/1-9", Description: "Choose"},
				{Key: "Enter", Description: "Answer"},
				{Key: "Esc", Description: "Back"},
			}
		}
		return []layout.KeyHint{
			{Key: "Enter", Description: "Answer"},
			{Key: "Esc", Description: "Back"},
		}
	case phaseFeedback:
		return []layout.KeyHint{{Key: "any key", Description: "Next question"}}
	case phaseFailed:
		return []layout.KeyHint{
			{Key: "r", Description: "Retry"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return nil
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if s.phase != phaseLoading && s.phase != phaseSubmitting {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case readyMsg:
		if msg.err != nil {
			return s.fail(msg.err)
		}
		s.sessionID = msg.sessionID
		s.standings = msg.standings
		return s, s.fetchNext()

	case nextMsg:
		return s.handleNext(msg)

	case resultMsg:
		return s.handleResult(msg)

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.phase == phaseQuestion && !s.current.IsMultipleChoice() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *Screen) handleNext(msg nextMsg) (screen.Screen, tea.Cmd) {
	if msg.err != nil {
		return s.fail(msg.err)
	}
	s.sessionID = msg.next.SessionID
	s.standings = msg.next.Standings

	if msg.next.Complete {
		stats := session.Stats{}
		if sess, err := s.manager.Session(s.learner); err == nil {
			stats = sess.Stats()
		}
		restart := func() screen.Screen { return New(s.manager, s.learner) }
		next := report.New(s.manager, s.learner, s.standings, stats, restart)
		return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
	}

	s.current = msg.next.Question
	s.focus, _ = mastery.Weakest(msg.next.Standings)
	s.phase = phaseQuestion
	if s.current.IsMultipleChoice() {
		s.mc = components.NewMultiChoice(s.current.Prompt, s.current.Options)
		return s, nil
	}
	s.input = components.NewTextInput("Type your answer...", 200)
	return s, s.input.Init()
}

func (s *Screen) handleResult(msg resultMsg) (screen.Screen, tea.Cmd) {
	if msg.err != nil {
		// The question can disappear when the bank is reloaded while it is
		// on screen; move on to another one.
		if errors.Is(msg.err, session.ErrQuestionNotFound) {
			return s, s.fetchNext()
		}
		return s.fail(msg.err)
	}
	s.result = msg.result
	s.standings = msg.result.Standings
	s.phase = phaseFeedback
	if s.current.IsMultipleChoice() {
		s.mc.Reveal(msg.result.CorrectAnswer)
	} else {
		s.input.MarkResult(msg.result.Correct)
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch s.phase {
	case phaseFeedback:
		return s, s.fetchNext()

	case phaseFailed:
		if msg.String() == "r" {
			s.err = nil
			return s, s.Init()
		}
		return s, nil

	case phaseQuestion:
		if s.current.IsMultipleChoice() {
			var cmd tea.Cmd
			s.mc, cmd = s.mc.Update(msg)
			if s.mc.Submitted {
				return s, s.submit(s.mc.Choice())
			}
			return s, cmd
		}
		if msg.String() == "enter" {
			if strings.TrimSpace(s.input.Value()) == "" {
				return s, nil
			}
			return s, s.submit(s.input.Value())
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *Screen) fail(err error) (screen.Screen, tea.Cmd) {
	s.phase = phaseFailed
	s.err = err
	return s, nil
}

func (s *Screen) ensure() tea.Cmd {
	manager, learner := s.manager, s.learner
	return func() tea.Msg {
		sess, err := manager.Ensure(context.Background(), learner)
		if err != nil {
			return readyMsg{err: err}
		}
		return readyMsg{sessionID: sess.ID(), standings: sess.Standings()}
	}
}

func (s *Screen) fetchNext() tea.Cmd {
	s.phase = phaseLoading
	manager, learner := s.manager, s.learner
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		next, err := manager.NextQuestion(context.Background(), learner)
		return nextMsg{next: next, err: err}
	})
}

func (s *Screen) submit(answer string) tea.Cmd {
	s.phase = phaseSubmitting
	manager, learner, id := s.manager, s.learner, s.current.ID
	return func() tea.Msg {
		res, err := manager.SubmitAnswer(context.Background(), learner, id, answer)
		return resultMsg{result: res, err: err}
	}
}
