// Package admin is the administrator dashboard: accounts, roles and
// platform analytics.
package admin

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/ui/components"
	"github.com/hackdojo/hackdojo/internal/ui/layout"
	"github.com/hackdojo/hackdojo/internal/ui/theme"
)

type loadedMsg struct {
	users     []api.User
	analytics *api.Analytics
	err       error
}

type roleSetMsg struct {
	email string
	role  api.Role
	err   error
}

// roleKeys maps a key to the role it assigns to the selected user.
var roleKeys = map[string]api.Role{
	"1": api.RoleStudent,
	"2": api.RoleParent,
	"3": api.RoleAdmin,
}

// AdminScreen lists every account and the platform's belt distribution.
type AdminScreen struct {
	deps      screen.Deps
	users     []api.User
	analytics *api.Analytics
	menu      components.Menu
	loading   bool
	errMsg    string
	notice    string
}

var _ screen.Screen = (*AdminScreen)(nil)
var _ screen.KeyHintProvider = (*AdminScreen)(nil)

// New creates an AdminScreen.
func New(deps screen.Deps) *AdminScreen {
	return &AdminScreen{deps: deps, loading: true}
}

func (a *AdminScreen) Title() string {
	return "Admin"
}

func (a *AdminScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "1/2/3", Description: "Make student/parent/admin"},
		{Key: "R", Description: "Refresh"},
		{Key: "X", Description: "Sign out"},
	}
}

func (a *AdminScreen) Init() tea.Cmd {
	client := a.deps.Client
	return func() tea.Msg {
		ctx := context.Background()
		users, err := client.Users(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		analytics, err := client.Analytics(ctx)
		return loadedMsg{users: users, analytics: analytics, err: err}
	}
}

func (a *AdminScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		a.loading = false
		if msg.err != nil {
			a.errMsg = msg.err.Error()
			return a, nil
		}
		a.errMsg = ""
		a.users = msg.users
		a.analytics = msg.analytics
		a.buildMenu()
		return a, nil

	case roleSetMsg:
		if msg.err != nil {
			a.errMsg = msg.err.Error()
			return a, nil
		}
		a.errMsg = ""
		a.notice = fmt.Sprintf("%s is now %s.", msg.email, msg.role)
		a.loading = true
		return a, a.Init()

	case tea.KeyPressMsg:
		key := msg.String()
		switch key {
		case "x":
			return a, func() tea.Msg { return screen.SignOutMsg{} }
		case "r":
			a.loading = true
			return a, a.Init()
		}
		if role, ok := roleKeys[key]; ok {
			return a, a.setRole(role)
		}
	}

	var cmd tea.Cmd
	a.menu, cmd = a.menu.Update(msg)
	return a, cmd
}

func (a *AdminScreen) buildMenu() {
	selected := a.menu.Selected
	items := make([]components.MenuItem, 0, len(a.users))
	for _, u := range a.users {
		items = append(items, components.MenuItem{
			Label: fmt.Sprintf("%-28s %-16s %s", u.Email, u.DisplayName, u.Role),
		})
	}
	a.menu = components.NewMenu(items)
	if selected < len(items) {
		a.menu.Selected = selected
	}
}

func (a *AdminScreen) setRole(role api.Role) tea.Cmd {
	if a.menu.Selected < 0 || a.menu.Selected >= len(a.users) {
		return nil
	}
	u := a.users[a.menu.Selected]
	if u.Role == role {
		return nil
	}
	a.notice = ""
	client := a.deps.Client
	return func() tea.Msg {
		err := client.SetUserRole(context.Background(), u.ID, role)
		return roleSetMsg{email: u.Email, role: role, err: err}
	}
}

func (a *AdminScreen) View(width, height int) string {
	if a.users == nil && a.analytics == nil {
		msg := theme.Hint.Render("Loading accounts...")
		if !a.loading && a.errMsg != "" {
			msg = components.ErrorLine(a.errMsg) + "\n\n" + theme.Hint.Render("press R to retry")
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
	}

	cw := components.ContentWidth(width)
	var sections []string
	if a.notice != "" {
		sections = append(sections, components.SuccessLine(a.notice))
	}
	if a.errMsg != "" {
		sections = append(sections, components.ErrorLine(a.errMsg))
	}
	if a.analytics != nil {
		sections = append(sections, a.renderAnalytics(cw))
	}
	sections = append(sections, components.Card(fmt.Sprintf("Users (%d)", len(a.users)), strings.TrimRight(a.menu.View(), "\n"), cw))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, strings.Join(sections, "\n\n"))
}

func (a *AdminScreen) renderAnalytics(width int) string {
	lines := []string{theme.Body.Render(fmt.Sprintf("%d students", a.analytics.TotalStudents))}

	total := 0
	for _, n := range a.analytics.BeltDistribution {
		total += n
	}
	for _, belt := range slices.Sorted(maps.Keys(a.analytics.BeltDistribution)) {
		n := a.analytics.BeltDistribution[belt]
		pct := 0.0
		if total > 0 {
			pct = float64(n) / float64(total) * 100
		}
		bar := components.NewProgressBar(fmt.Sprintf("%-14s %3d", belt, n), pct, false, width-4)
		lines = append(lines, bar.View())
	}
	return components.Card("Analytics", strings.Join(lines, "\n"), width)
}
