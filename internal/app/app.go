package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/router"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/screens/admin"
	"github.com/hackdojo/hackdojo/internal/screens/dashboard"
	"github.com/hackdojo/hackdojo/internal/screens/login"
	"github.com/hackdojo/hackdojo/internal/screens/parent"
	"github.com/hackdojo/hackdojo/internal/screens/welcome"
	"github.com/hackdojo/hackdojo/internal/session"
	"github.com/hackdojo/hackdojo/internal/ui/layout"
)

const (
	expiredNotice   = "Your session expired. Please sign in again."
	signedOutNotice = "You have signed out. See you at the dojo!"
)

// sessionChangedMsg carries a session transition into the update loop.
type sessionChangedMsg session.Change

type signedOutMsg struct{}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	deps   screen.Deps
	width  int
	height int
}

// newAppModel creates an AppModel that opens on the splash screen and then
// continues to the dashboard or the sign-in form.
func newAppModel(deps screen.Deps) AppModel {
	splash := welcome.New(func() screen.Screen { return startScreen(deps) })
	return AppModel{
		router: router.New(splash),
		deps:   deps,
	}
}

// startScreen is the first real screen: the landing for a restored session
// or the sign-in form.
func startScreen(deps screen.Deps) screen.Screen {
	if u := deps.Session.User(); u != nil && deps.Session.Phase() == session.PhaseAuthenticated {
		return landingScreen(deps, session.Destination(u.Role))
	}
	return login.New(deps.Session, "")
}

func landingScreen(deps screen.Deps, l session.Landing) screen.Screen {
	switch l {
	case session.LandingParentDashboard:
		return parent.New(deps)
	case session.LandingAdminDashboard:
		return admin.New(deps)
	default:
		return dashboard.New(deps)
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case screen.SignedInMsg:
		return m, m.router.Reset(landingScreen(m.deps, msg.Landing))

	case screen.SignOutMsg:
		mgr := m.deps.Session
		return m, func() tea.Msg {
			mgr.Logout(context.Background())
			return signedOutMsg{}
		}

	case signedOutMsg:
		return m, m.router.Reset(login.New(m.deps.Session, signedOutNotice))

	case sessionChangedMsg:
		// Only a server rejection forces the user back to the form; the
		// app drives every other transition itself.
		if msg.Phase == session.PhaseUnauthenticated && msg.Cause != nil {
			return m, m.router.Reset(login.New(m.deps.Session, expiredNotice))
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) identity() string {
	u := m.deps.Session.User()
	if u == nil {
		return ""
	}
	name := u.DisplayName
	if name == "" {
		name = u.Email
	}
	return fmt.Sprintf("%s · %s  ", name, u.Role)
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.identity(), m.width)

	var footerHints []layout.KeyHint
	if p, ok := active.(screen.KeyHintProvider); ok {
		footerHints = p.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "any key", Description: "Continue"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(m.height-headerHeight-footerHeight, 0)

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program. deps.Session should already have been
// restored from the credential store.
func Run(deps screen.Deps) error {
	p := tea.NewProgram(newAppModel(deps))
	deps.Session.OnChange(func(c session.Change) {
		p.Send(sessionChangedMsg(c))
	})
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
