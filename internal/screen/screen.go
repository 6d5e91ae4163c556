package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/skillpath/internal/ui/layout"
)

// Screen is one page of the terminal UI.
type Screen interface {
	Init() tea.Cmd

	// Update handles a message and returns the updated screen.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	// Title is shown in the header.
	Title() string
}

// KeyHintProvider is implemented by screens with their own footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// LearnerScoped is implemented by screens that act for one learner, whose
// name is then shown in the header.
type LearnerScoped interface {
	Learner() string
}
