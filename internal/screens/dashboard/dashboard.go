// Package dashboard is the student's home: belts, days and the way into
// lessons and Sensei.
package dashboard

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/progress"
	"github.com/hackdojo/hackdojo/internal/router"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/screens/chat"
	"github.com/hackdojo/hackdojo/internal/screens/lesson"
	"github.com/hackdojo/hackdojo/internal/sensei"
	"github.com/hackdojo/hackdojo/internal/ui/components"
	"github.com/hackdojo/hackdojo/internal/ui/layout"
	"github.com/hackdojo/hackdojo/internal/ui/theme"
)

type loadedMsg struct {
	model *progress.Model
	err   error
}

type refreshedMsg struct {
	err error
}

// DashboardScreen lists the curriculum by belt with the learner's progress.
type DashboardScreen struct {
	deps    screen.Deps
	model   *progress.Model
	menu    components.Menu
	loading bool
	errMsg  string
}

var _ screen.Screen = (*DashboardScreen)(nil)
var _ screen.KeyHintProvider = (*DashboardScreen)(nil)

// New creates a DashboardScreen for the signed-in student.
func New(deps screen.Deps) *DashboardScreen {
	return &DashboardScreen{deps: deps, loading: true}
}

func (d *DashboardScreen) Title() string {
	return "Dashboard"
}

func (d *DashboardScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Open lesson"},
		{Key: "S", Description: "Ask Sensei"},
		{Key: "R", Description: "Refresh"},
		{Key: "X", Description: "Sign out"},
	}
}

func (d *DashboardScreen) Init() tea.Cmd {
	deps := d.deps
	return func() tea.Msg {
		ctx := context.Background()
		catalog, err := deps.Client.Curriculum(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		var opts []progress.Option
		if u := deps.Session.User(); u != nil && deps.Snapshots != nil {
			opts = append(opts, progress.WithSnapshots(deps.Snapshots, u.ID))
		}
		model := progress.NewModel(deps.Client, catalog, opts...)
		model.Seed(ctx)
		_, err = model.Load(ctx)
		return loadedMsg{model: model, err: err}
	}
}

func (d *DashboardScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		d.loading = false
		if msg.model != nil {
			d.model = msg.model
			d.buildMenu()
		}
		d.errMsg = errorText(msg.err)
		return d, nil

	case refreshedMsg:
		d.loading = false
		d.errMsg = errorText(msg.err)
		d.syncMenu()
		return d, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "x":
			return d, func() tea.Msg { return screen.SignOutMsg{} }
		case "r":
			return d, d.refresh()
		case "s":
			if d.model != nil {
				return d, d.openSensei()
			}
			return d, nil
		}
	}

	if d.model == nil {
		return d, nil
	}
	d.syncMenu()
	var cmd tea.Cmd
	d.menu, cmd = d.menu.Update(msg)
	return d, cmd
}

func (d *DashboardScreen) refresh() tea.Cmd {
	if d.model == nil {
		d.loading = true
		return d.Init()
	}
	d.loading = true
	model := d.model
	return func() tea.Msg {
		_, err := model.Load(context.Background())
		return refreshedMsg{err: err}
	}
}

func (d *DashboardScreen) openSensei() tea.Cmd {
	model := d.model
	s := chat.New(d.deps, "Sensei", sensei.SessionScope, func() api.SenseiContext {
		st, _ := model.State()
		return api.SenseiContext{CurrentDay: st.CurrentDay(), CompletedDays: st.CompletedDays()}
	})
	return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
}

// buildMenu lays out one menu item per curriculum day.
func (d *DashboardScreen) buildMenu() {
	prev := -1
	if len(d.menu.Items) > 0 {
		prev = d.menu.Selected
	}
	var items []components.MenuItem
	for _, b := range d.model.Catalog().Belts() {
		for _, ds := range d.model.Days(b) {
			day := ds.Day
			items = append(items, components.MenuItem{
				Label:    fmt.Sprintf("Day %d", day),
				Disabled: !ds.Unlocked,
				Action: func() tea.Cmd {
					s := lesson.New(d.deps, d.model, day)
					return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
				},
			})
		}
	}
	d.menu = components.NewMenu(items)
	if st, ok := d.model.State(); ok {
		d.menu.Selected = d.indexOf(st.CurrentDay())
	}
	if prev >= 0 && prev < len(items) && !items[prev].Disabled {
		d.menu.Selected = prev
	}
}

// syncMenu refreshes the locked flags after progress changed underneath.
func (d *DashboardScreen) syncMenu() {
	if d.model == nil {
		return
	}
	if len(d.menu.Items) != d.model.Catalog().TotalDays() {
		d.buildMenu()
		return
	}
	for i := range d.menu.Items {
		d.menu.Items[i].Disabled = !d.model.IsUnlocked(i + 1)
	}
}

func (d *DashboardScreen) indexOf(day int) int {
	return max(0, min(day-1, len(d.menu.Items)-1))
}

func (d *DashboardScreen) selectedDay() int {
	return d.menu.Selected + 1
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	if api.IsNetwork(err) {
		return "Cannot reach HackDojo. Showing your last saved progress."
	}
	return err.Error()
}

func (d *DashboardScreen) View(width, height int) string {
	if d.model == nil {
		msg := theme.Hint.Render("Loading your dojo...")
		if !d.loading && d.errMsg != "" {
			msg = components.ErrorLine(d.errMsg) + "\n\n" + theme.Hint.Render("press R to retry")
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
	}
	d.syncMenu()

	cw := components.ContentWidth(width)
	st, _ := d.model.State()
	var sections []string

	sections = append(sections, d.renderSummary(st, cw))
	if d.model.HintOnly() {
		sections = append(sections, theme.Hint.Render("Offline: progress shown from your last session."))
	}
	if d.errMsg != "" {
		sections = append(sections, components.ErrorLine(d.errMsg))
	}
	sections = append(sections, d.renderBelts(cw))
	sections = append(sections, d.renderDays(cw))

	content := strings.Join(sections, "\n\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, content)
}

func (d *DashboardScreen) renderSummary(st progress.State, width int) string {
	name := "ninja"
	if u := d.deps.Session.User(); u != nil && u.DisplayName != "" {
		name = u.DisplayName
	}
	belt := st.CurrentBelt()
	line := theme.Title.Render("Welcome back, "+name+"!") + "  " +
		theme.Subtitle.Render(fmt.Sprintf("Day %d", st.CurrentDay())) + "  " +
		beltStyle(d.model.Catalog(), belt).Render(belt)
	done := theme.Subtitle.Render(fmt.Sprintf("%d of %d days completed", st.CompletedCount(), d.model.Catalog().TotalDays()))
	return lipgloss.NewStyle().Width(width).Render(line + "\n" + done)
}

func (d *DashboardScreen) renderBelts(width int) string {
	var lines []string
	for _, b := range d.model.Catalog().Belts() {
		pct, _ := d.model.ProgressForBelt(b.Name)
		label := beltStyle(d.model.Catalog(), b.Name).Render(fmt.Sprintf("%-14s", b.Name))
		bar := components.NewProgressBar("", pct, true, width-20)
		lines = append(lines, label+" "+bar.View())
	}
	return components.Card("Belts", strings.Join(lines, "\n"), width)
}

func (d *DashboardScreen) renderDays(width int) string {
	day := d.selectedDay()
	b, ok := d.model.Catalog().BeltFor(day)
	if !ok {
		return ""
	}
	var lines []string
	for _, ds := range d.model.Days(b) {
		mark := theme.Locked.Render("🔒")
		switch {
		case ds.Completed:
			mark = theme.Correct.Render("✓ ")
		case ds.Unlocked:
			mark = theme.Selected.Render("▸ ")
		}
		label := fmt.Sprintf("Day %-3d %s", ds.Day, ds.Title)
		style := theme.Unselected
		switch {
		case ds.Day == day:
			style = theme.Selected
			label = "› " + label
		case !ds.Unlocked:
			style = theme.Locked
			label = "  " + label
		default:
			label = "  " + label
		}
		lines = append(lines, mark+" "+style.Render(label))
	}
	return components.Card(b.Name+" Belt", strings.Join(lines, "\n"), width)
}

func beltStyle(catalog *curriculum.Catalog, name string) lipgloss.Style {
	if b, ok := catalog.BeltByName(name); ok {
		return theme.Belt(b.Color)
	}
	return theme.Belt("")
}

// Model exposes the loaded progress model, nil until the first load.
func (d *DashboardScreen) Model() *progress.Model {
	return d.model
}
