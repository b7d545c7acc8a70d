// Package parent is the parent dashboard: linked children, their progress
// and recent lesson activity.
package parent

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/progress"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/ui/components"
	"github.com/hackdojo/hackdojo/internal/ui/layout"
	"github.com/hackdojo/hackdojo/internal/ui/theme"
)

// activityShown is how many recent attempts the detail panel lists.
const activityShown = 8

type loadedMsg struct {
	catalog  *curriculum.Catalog
	children []api.Child
	err      error
}

type detailMsg struct {
	childID  string
	progress progress.State
	activity []api.Activity
	err      error
}

type addedMsg struct {
	child *api.Child
	err   error
}

type detail struct {
	childID  string
	progress progress.State
	activity []api.Activity
}

// ParentScreen lists a parent's children and shows one child's progress.
type ParentScreen struct {
	deps     screen.Deps
	catalog  *curriculum.Catalog
	children []api.Child
	menu     components.Menu
	detail   *detail
	loading  bool
	errMsg   string
	notice   string

	adding bool
	name   components.TextInput
	age    components.TextInput
	field  int
}

var _ screen.Screen = (*ParentScreen)(nil)
var _ screen.KeyHintProvider = (*ParentScreen)(nil)

// New creates a ParentScreen.
func New(deps screen.Deps) *ParentScreen {
	age := components.NewTextInput("Age", "10", 2)
	age.NumericOnly = true
	return &ParentScreen{
		deps:    deps,
		loading: true,
		name:    components.NewTextInput("Child's name", "", 50),
		age:     age,
	}
}

func (p *ParentScreen) Title() string {
	return "Family"
}

func (p *ParentScreen) KeyHints() []layout.KeyHint {
	if p.adding {
		return []layout.KeyHint{
			{Key: "Tab", Description: "Next field"},
			{Key: "Enter", Description: "Add child"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "View progress"},
		{Key: "A", Description: "Add child"},
		{Key: "R", Description: "Refresh"},
		{Key: "X", Description: "Sign out"},
	}
}

func (p *ParentScreen) Init() tea.Cmd {
	client := p.deps.Client
	return func() tea.Msg {
		ctx := context.Background()
		catalog, err := client.Curriculum(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		children, err := client.Children(ctx)
		return loadedMsg{catalog: catalog, children: children, err: err}
	}
}

func (p *ParentScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		p.loading = false
		if msg.err != nil {
			p.errMsg = msg.err.Error()
			return p, nil
		}
		p.errMsg = ""
		p.catalog = msg.catalog
		p.children = msg.children
		p.buildMenu()
		return p, nil

	case detailMsg:
		if msg.err != nil {
			p.errMsg = msg.err.Error()
			return p, nil
		}
		p.errMsg = ""
		p.detail = &detail{childID: msg.childID, progress: msg.progress, activity: msg.activity}
		return p, nil

	case addedMsg:
		if msg.err != nil {
			p.errMsg = msg.err.Error()
			return p, nil
		}
		p.adding = false
		p.errMsg = ""
		p.notice = fmt.Sprintf("Added %s.", msg.child.Name)
		p.loading = true
		return p, p.Init()

	case tea.KeyPressMsg:
		if p.adding {
			return p, p.updateForm(msg)
		}
		switch msg.String() {
		case "x":
			return p, func() tea.Msg { return screen.SignOutMsg{} }
		case "r":
			p.loading = true
			return p, p.Init()
		case "a":
			return p, p.startAdding()
		}
	}

	if p.adding {
		return p, p.updateForm(msg)
	}
	var cmd tea.Cmd
	p.menu, cmd = p.menu.Update(msg)
	return p, cmd
}

func (p *ParentScreen) buildMenu() {
	items := make([]components.MenuItem, 0, len(p.children))
	for _, c := range p.children {
		id := c.ID
		items = append(items, components.MenuItem{
			Label:  fmt.Sprintf("%s (age %d)", c.Name, c.Age),
			Action: func() tea.Cmd { return p.loadDetail(id) },
		})
	}
	p.menu = components.NewMenu(items)
}

func (p *ParentScreen) loadDetail(childID string) tea.Cmd {
	client, catalog := p.deps.Client, p.catalog
	return func() tea.Msg {
		ctx := context.Background()
		rec, err := client.ChildProgress(ctx, childID)
		if err != nil {
			return detailMsg{err: err}
		}
		activity, err := client.ChildActivity(ctx, childID)
		if err != nil {
			return detailMsg{err: err}
		}
		return detailMsg{childID: childID, progress: progress.FromRecord(*rec, catalog), activity: activity}
	}
}

func (p *ParentScreen) startAdding() tea.Cmd {
	p.adding = true
	p.notice = ""
	p.errMsg = ""
	p.name.Reset()
	p.age.Reset()
	p.field = 0
	p.age.Blur()
	return p.name.Focus()
}

func (p *ParentScreen) updateForm(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyPressMsg); ok {
		switch k.String() {
		case "esc":
			p.adding = false
			p.errMsg = ""
			return nil
		case "tab", "shift+tab", "up", "down":
			p.field = 1 - p.field
			if p.field == 0 {
				p.age.Blur()
				return p.name.Focus()
			}
			p.name.Blur()
			return p.age.Focus()
		case "enter":
			return p.submit()
		}
	}
	var cmd tea.Cmd
	if p.field == 0 {
		p.name, cmd = p.name.Update(msg)
	} else {
		p.age, cmd = p.age.Update(msg)
	}
	return cmd
}

func (p *ParentScreen) submit() tea.Cmd {
	name := p.name.Value()
	if name == "" {
		p.errMsg = "Name is required"
		return nil
	}
	age, err := p.age.NumericValue()
	if err != nil || age < 1 {
		p.errMsg = "Age must be a number"
		return nil
	}
	client := p.deps.Client
	return func() tea.Msg {
		child, err := client.AddChild(context.Background(), name, age)
		return addedMsg{child: child, err: err}
	}
}

func (p *ParentScreen) View(width, height int) string {
	if p.catalog == nil {
		msg := theme.Hint.Render("Loading your family...")
		if !p.loading && p.errMsg != "" {
			msg = components.ErrorLine(p.errMsg) + "\n\n" + theme.Hint.Render("press R to retry")
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
	}

	cw := components.ContentWidth(width)
	var sections []string

	if p.notice != "" {
		sections = append(sections, components.SuccessLine(p.notice))
	}
	if p.errMsg != "" {
		sections = append(sections, components.ErrorLine(p.errMsg))
	}

	if p.adding {
		form := p.name.View() + "\n\n" + p.age.View()
		sections = append(sections, components.Card("Add a child", form, cw))
	} else if len(p.children) == 0 {
		sections = append(sections, components.Card("Children", theme.Hint.Render("No children linked yet. Press A to add one."), cw))
	} else {
		sections = append(sections, components.Card("Children", strings.TrimRight(p.menu.View(), "\n"), cw))
	}

	if p.detail != nil && !p.adding {
		sections = append(sections, p.renderDetail(cw))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, strings.Join(sections, "\n\n"))
}

func (p *ParentScreen) childName(id string) string {
	for _, c := range p.children {
		if c.ID == id {
			return c.Name
		}
	}
	return "Child"
}

func (p *ParentScreen) renderDetail(width int) string {
	st := p.detail.progress
	var lines []string

	belt := st.CurrentBelt()
	style := theme.Belt("")
	if b, ok := p.catalog.BeltByName(belt); ok {
		style = theme.Belt(b.Color)
	}
	lines = append(lines,
		theme.Body.Render(fmt.Sprintf("Day %d of %d  ", st.CurrentDay(), p.catalog.TotalDays()))+style.Render(belt),
		theme.Subtitle.Render(fmt.Sprintf("%d days completed", st.CompletedCount())),
		"")
	for _, b := range p.catalog.Belts() {
		bar := components.NewProgressBar("", st.ProgressForBelt(b), true, width-20)
		lines = append(lines, theme.Belt(b.Color).Render(fmt.Sprintf("%-14s", b.Name))+" "+bar.View())
	}

	lines = append(lines, "", theme.Title.Render("Recent activity"))
	if len(p.detail.activity) == 0 {
		lines = append(lines, theme.Hint.Render("No lessons attempted yet."))
	}
	for i, a := range p.detail.activity {
		if i == activityShown {
			break
		}
		mark := theme.Correct.Render("✓")
		if !a.Success {
			mark = theme.Incorrect.Render("✗")
		}
		lines = append(lines, fmt.Sprintf("%s Day %-3d %s  %s", mark, a.Day, a.Lesson, theme.Subtitle.Render(when(a.Timestamp))))
	}

	return components.Card(p.childName(p.detail.childID), strings.Join(lines, "\n"), width)
}

// when formats an activity timestamp for display, passing through values
// that are not RFC 3339.
func when(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("Jan 2 15:04")
}
