// Package login is the sign-in and registration screen.
package login

import (
	"context"
	"errors"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/session"
	"github.com/hackdojo/hackdojo/internal/ui/components"
	"github.com/hackdojo/hackdojo/internal/ui/layout"
	"github.com/hackdojo/hackdojo/internal/ui/theme"
)

// Authenticator is the part of the session manager the screen drives.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (session.Landing, error)
	Register(ctx context.Context, email, password string, role api.Role) (session.Landing, error)
}

const (
	fieldEmail = iota
	fieldPassword
	fieldRole
)

var roles = []api.Role{api.RoleStudent, api.RoleParent}

type resultMsg struct {
	landing session.Landing
	err     error
}

// LoginScreen collects credentials and signs the user in.
type LoginScreen struct {
	auth     Authenticator
	email    components.TextInput
	password components.TextInput
	register bool
	role     int
	focus    int
	busy     bool
	errMsg   string
	notice   string
}

var _ screen.Screen = (*LoginScreen)(nil)
var _ screen.KeyHintProvider = (*LoginScreen)(nil)

// New creates a LoginScreen. notice is shown above the form, e.g. after a
// session expired.
func New(auth Authenticator, notice string) *LoginScreen {
	return &LoginScreen{
		auth:     auth,
		email:    components.NewTextInput("Email", "you@example.com", 254),
		password: components.NewPasswordInput("Password"),
		notice:   notice,
	}
}

func (l *LoginScreen) Init() tea.Cmd {
	return l.email.Focus()
}

func (l *LoginScreen) Title() string {
	if l.register {
		return "Create account"
	}
	return "Sign in"
}

func (l *LoginScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
	}
	if l.register {
		hints = append(hints,
			layout.KeyHint{Key: "←/→", Description: "Role"},
			layout.KeyHint{Key: "Ctrl+R", Description: "Have an account?"})
	} else {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+R", Description: "Register"})
	}
	return append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
}

func (l *LoginScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		l.busy = false
		if msg.err != nil {
			l.errMsg = describe(msg.err)
			return l, nil
		}
		l.errMsg = ""
		landing := msg.landing
		return l, func() tea.Msg { return screen.SignedInMsg{Landing: landing} }

	case tea.KeyPressMsg:
		if l.busy {
			return l, nil
		}
		switch msg.String() {
		case "tab", "down":
			return l, l.moveFocus(1)
		case "shift+tab", "up":
			return l, l.moveFocus(-1)
		case "ctrl+r":
			l.register = !l.register
			l.errMsg = ""
			if !l.register && l.focus == fieldRole {
				return l, l.setFocus(fieldEmail)
			}
			return l, nil
		case "left", "right":
			if l.focus == fieldRole {
				l.role = (l.role + 1) % len(roles)
				return l, nil
			}
		case "enter":
			return l, l.submit()
		}
	}

	var cmd tea.Cmd
	switch l.focus {
	case fieldEmail:
		l.email, cmd = l.email.Update(msg)
	case fieldPassword:
		l.password, cmd = l.password.Update(msg)
	}
	return l, cmd
}

func (l *LoginScreen) fieldCount() int {
	if l.register {
		return 3
	}
	return 2
}

func (l *LoginScreen) moveFocus(delta int) tea.Cmd {
	n := l.fieldCount()
	return l.setFocus(((l.focus+delta)%n + n) % n)
}

func (l *LoginScreen) setFocus(f int) tea.Cmd {
	l.focus = f
	l.email.Blur()
	l.password.Blur()
	switch f {
	case fieldEmail:
		return l.email.Focus()
	case fieldPassword:
		return l.password.Focus()
	}
	return nil
}

func (l *LoginScreen) submit() tea.Cmd {
	l.busy = true
	l.errMsg = ""
	l.notice = ""
	email, password := l.email.Value(), l.password.Model.Value()
	auth := l.auth
	if l.register {
		role := roles[l.role]
		return func() tea.Msg {
			landing, err := auth.Register(context.Background(), email, password, role)
			return resultMsg{landing: landing, err: err}
		}
	}
	return func() tea.Msg {
		landing, err := auth.Login(context.Background(), email, password)
		return resultMsg{landing: landing, err: err}
	}
}

// describe turns a sign-in failure into a message for the form.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrAuthenticating):
		return "Already signing in, hang on."
	case api.IsValidation(err):
		var ve *api.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			return capitalize(ve.Field) + " " + ve.Message
		}
		return err.Error()
	case api.IsAuth(err):
		return "Invalid email or password."
	case api.IsNetwork(err):
		return "Cannot reach HackDojo. Check your connection and try again."
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (l *LoginScreen) View(width, height int) string {
	cw := min(components.ContentWidth(width), 60)
	var sections []string

	if l.notice != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.Accent).Render(l.notice), "")
	}

	sections = append(sections, l.email.View(), "", l.password.View())

	if l.register {
		var opts []string
		for i, r := range roles {
			label := " " + string(r) + " "
			if i == l.role {
				opts = append(opts, theme.Selected.Render("["+label+"]"))
			} else {
				opts = append(opts, theme.Unselected.Render(" "+label+" "))
			}
		}
		label := theme.Subtitle.Render("I am a")
		if l.focus == fieldRole {
			label = theme.Selected.Render("I am a")
		}
		sections = append(sections, "", label, strings.Join(opts, " "))
	}

	sections = append(sections, "")
	switch {
	case l.busy && l.register:
		sections = append(sections, theme.Hint.Render("Creating your account..."))
	case l.busy:
		sections = append(sections, theme.Hint.Render("Signing in..."))
	case l.errMsg != "":
		sections = append(sections, components.ErrorLine(l.errMsg))
	}

	card := components.Card(l.Title(), strings.Join(sections, "\n"), cw)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}
