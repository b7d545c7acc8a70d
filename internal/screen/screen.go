package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/sensei"
	"github.com/hackdojo/hackdojo/internal/session"
	"github.com/hackdojo/hackdojo/internal/store"
	"github.com/hackdojo/hackdojo/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Closer is implemented by screens that hold work to cancel when they leave
// the stack.
type Closer interface {
	Close()
}

// Deps are the services screens are built from.
type Deps struct {
	Session     *session.Manager
	Client      *api.Client
	Snapshots   store.SnapshotRepo
	Transcripts store.TranscriptRepo
	Assistant   sensei.Assistant
	SenseiRate  int
}

// SignedInMsg reports a successful interactive sign-in.
type SignedInMsg struct {
	Landing session.Landing
}

// SignOutMsg asks the app to end the session.
type SignOutMsg struct{}
