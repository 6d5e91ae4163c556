package components

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"

	"github.com/abhisek/skillpath/internal/mastery"
)

func key(r rune) tea.KeyPressMsg { return tea.KeyPressMsg{Code: r, Text: string(r)} }

func TestMultiChoiceNavigation(t *testing.T) {
	mc := NewMultiChoice("Pick one", []string{"a", "b", "c", "d", "e"})

	mc, _ = mc.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	mc, _ = mc.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 2, mc.Selected)

	mc, _ = mc.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, "b", mc.Choice())

	mc, _ = mc.Update(key('5'))
	assert.Equal(t, "e", mc.Choice())

	mc, _ = mc.Update(key('9'))
	assert.Equal(t, "e", mc.Choice(), "out of range digit is ignored")

	mc, _ = mc.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.True(t, mc.Submitted)

	mc, _ = mc.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, 4, mc.Selected, "submitted component ignores keys")
}

func TestMultiChoiceEmptyNeverSubmits(t *testing.T) {
	mc := NewMultiChoice("?", nil)
	mc, _ = mc.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.False(t, mc.Submitted)
	assert.Equal(t, "", mc.Choice())
}

func TestMultiChoiceView(t *testing.T) {
	mc := NewMultiChoice("Which layer?", []string{"input", "hidden"})
	out := mc.View()
	assert.Contains(t, out, "Which layer?")
	assert.Contains(t, out, "▸ 1)  input")
	assert.Contains(t, out, "2)  hidden")

	mc.Submitted = true
	mc.Reveal("hidden")
	assert.NotContains(t, mc.View(), "▸")
}

func TestProgressBarWidth(t *testing.T) {
	bar := NewProgressBar("", 0.5, true, 30)
	out := bar.View()
	if !strings.Contains(out, "50%") {
		t.Errorf("expected percent in %q", out)
	}
}

func TestMasteryBarUsesBandColor(t *testing.T) {
	bar := MasteryBar(mastery.Entry{Skill: "Programacion", Probability: 0.2}, 20, 60)
	assert.Equal(t, BandColor(mastery.BandWeak), bar.Fill)
	assert.Contains(t, bar.View(), "Programacion")
	assert.Contains(t, bar.View(), "20%")
}

func TestMenuEnterRunsAction(t *testing.T) {
	ran := ""
	m := NewMenu([]MenuItem{
		{Label: "one", Action: func() tea.Cmd { ran = "one"; return nil }},
		{Label: "two", Action: func() tea.Cmd { ran = "two"; return nil }},
	})
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Equal(t, "two", ran)
}
