// Package report shows a learner's final standings once no question is left.
package report

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/router"
	"github.com/abhisek/skillpath/internal/screen"
	"github.com/abhisek/skillpath/internal/session"
	"github.com/abhisek/skillpath/internal/ui/components"
	"github.com/abhisek/skillpath/internal/ui/layout"
	"github.com/abhisek/skillpath/internal/ui/theme"
)

type resetMsg struct {
	err error
}

// Screen is the end-of-session report.
type Screen struct {
	manager   *session.Manager
	learner   string
	standings []mastery.Entry
	stats     session.Stats
	restart   func() screen.Screen

	resetting bool
	err       error
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.LearnerScoped   = (*Screen)(nil)
)

// New creates a report screen. After a reset, restart builds the screen
// that replaces the report.
func New(manager *session.Manager, learner string, standings []mastery.Entry, stats session.Stats, restart func() screen.Screen) *Screen {
	return &Screen{
		manager:   manager,
		learner:   learner,
		standings: standings,
		stats:     stats,
		restart:   restart,
	}
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Report" }

func (s *Screen) Learner() string { return s.learner }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "r", Description: "Start over"},
		{Key: "q", Description: "Quit"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resetMsg:
		s.resetting = false
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		next := s.restart()
		return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }

	case tea.KeyMsg:
		if s.resetting {
			return s, nil
		}
		switch msg.String() {
		case "q":
			return s, tea.Quit
		case "r":
			s.resetting = true
			s.err = nil
			manager, learner := s.manager, s.learner
			return s, func() tea.Msg {
				_, err := manager.Reset(context.Background(), learner)
				return resetMsg{err: err}
			}
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder

	b.WriteString("\n" + theme.Title.Render("  Every question has been answered") + "\n\n")

	accuracy := 0
	if s.stats.Answered > 0 {
		accuracy = s.stats.Correct * 100 / s.stats.Answered
	}
	b.WriteString(theme.Body.Render(fmt.Sprintf("  Answered %d, correct %d (%d%%)",
		s.stats.Answered, s.stats.Correct, accuracy)) + "\n\n")

	labelWidth := 0
	for _, e := range s.standings {
		labelWidth = max(labelWidth, lipgloss.Width(e.Skill))
	}
	barWidth := min(max(width-8, 30), 80)
	for _, e := range s.standings {
		b.WriteString("  " + components.MasteryBar(e, labelWidth, barWidth).View())
		b.WriteString("  " + theme.Hint.Render(string(mastery.ResolveBand(e.Probability))) + "\n")
	}

	if weakest, ok := mastery.Weakest(s.standings); ok {
		b.WriteString("\n" + theme.Hint.Render("  Focus next on "+weakest.Skill) + "\n")
	}
	if s.resetting {
		b.WriteString("\n" + theme.Hint.Render("  Starting a new session...") + "\n")
	}
	if s.err != nil {
		b.WriteString("\n" + theme.Incorrect.Render("  Reset failed: "+s.err.Error()) + "\n")
	}
	return b.String()
}
