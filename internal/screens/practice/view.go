package practice

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/ui/components"
	"github.com/abhisek/skillpath/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	var b strings.Builder

	switch s.phase {
	case phaseLoading:
		b.WriteString("\n  " + s.spinner.View() + " Preparing the next question...\n")
	case phaseFailed:
		b.WriteString("\n" + theme.Incorrect.Render("  Something went wrong") + "\n\n")
		b.WriteString(theme.Hint.Render("  "+s.err.Error()) + "\n")
	default:
		b.WriteString(s.renderQuestion(width))
	}

	if len(s.standings) > 0 {
		b.WriteString("\n")
		b.WriteString(renderStandings(s.standings, width))
	}
	return b.String()
}

func (s *Screen) renderQuestion(width int) string {
	var b strings.Builder

	info := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("  Skill: %s", s.current.Skill))
	if s.focus.Skill != "" {
		info += theme.Hint.Render(fmt.Sprintf("   (%s, %s)", percent(s.focus.Probability), mastery.ResolveBand(s.focus.Probability)))
	}
	b.WriteString(info + "\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	if s.current.IsMultipleChoice() {
		b.WriteString(indent(s.mc.View(), "  "))
	} else {
		b.WriteString(theme.Body.Bold(true).Render("  "+s.current.Prompt) + "\n\n")
		b.WriteString("  Answer: " + s.input.View() + "\n")
	}

	switch s.phase {
	case phaseSubmitting:
		b.WriteString("\n  " + s.spinner.View() + " Checking...\n")
	case phaseFeedback:
		b.WriteString("\n" + s.renderFeedback() + "\n")
	}
	return b.String()
}

func (s *Screen) renderFeedback() string {
	res := s.result
	var line string
	if res.Correct {
		line = theme.Correct.Render("  Correct!")
	} else {
		line = theme.Incorrect.Render("  Incorrect.") +
			theme.Body.Render(" The answer was "+res.CorrectAnswer)
	}
	if adj := res.Adjustment; adj.Tracked {
		line += "\n" + theme.Hint.Render(fmt.Sprintf("  %s: %s → %s", adj.Skill, percent(adj.Before), percent(adj.After)))
	}
	return line
}

// renderStandings draws one mastery bar per skill, weakest first.
func renderStandings(standings []mastery.Entry, width int) string {
	labelWidth := 0
	for _, e := range standings {
		labelWidth = max(labelWidth, lipgloss.Width(e.Skill))
	}
	barWidth := min(max(width-8, 30), 80)

	var b strings.Builder
	b.WriteString(theme.Title.Render("  Mastery") + "\n")
	for _, e := range standings {
		b.WriteString("  " + components.MasteryBar(e, labelWidth, barWidth).View() + "\n")
	}
	return b.String()
}

func percent(p float64) string {
	return fmt.Sprintf("%d%%", int(p*100+0.5))
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}
