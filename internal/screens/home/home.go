// Package home is the learner picker shown when play starts without a
// learner.
package home

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/skillpath/internal/router"
	"github.com/abhisek/skillpath/internal/screen"
	"github.com/abhisek/skillpath/internal/screens/practice"
	"github.com/abhisek/skillpath/internal/session"
	"github.com/abhisek/skillpath/internal/ui/components"
	"github.com/abhisek/skillpath/internal/ui/theme"
)

// HomeScreen lists the catalog's learners.
type HomeScreen struct {
	menu   components.Menu
	skills int
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates the learner picker. Picking a learner pushes a practice
// screen for them.
func New(manager *session.Manager) *HomeScreen {
	cat := manager.Catalog()
	learners := cat.Learners()

	items := make([]components.MenuItem, 0, len(learners)+1)
	for _, l := range learners {
		name := l.Name
		hint := ""
		if sess, err := manager.Session(name); err == nil {
			hint = fmt.Sprintf("in progress, %d answered", sess.Stats().Answered)
		}
		items = append(items, components.MenuItem{
			Label: name,
			Hint:  hint,
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: practice.New(manager, name)}
				}
			},
		})
	}
	items = append(items, components.MenuItem{
		Label:  "Quit",
		Action: func() tea.Cmd { return tea.Quit },
	})

	return &HomeScreen{
		menu:   components.NewMenu(items),
		skills: len(cat.Skills()),
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n" + theme.Title.Render("  Who is practicing?") + "\n")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("  %d skills tracked", h.skills)) + "\n\n")
	b.WriteString(h.menu.View())
	return b.String()
}

func (h *HomeScreen) Title() string {
	return "Learners"
}
