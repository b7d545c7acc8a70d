// Package lesson is the lesson screen: the day's reading, the exercise
// editor and the results of running it.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/progress"
	"github.com/hackdojo/hackdojo/internal/router"
	"github.com/hackdojo/hackdojo/internal/runner"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/screens/chat"
	"github.com/hackdojo/hackdojo/internal/sensei"
	"github.com/hackdojo/hackdojo/internal/ui/components"
	"github.com/hackdojo/hackdojo/internal/ui/layout"
	"github.com/hackdojo/hackdojo/internal/ui/theme"
)

// editorHeight is the number of code lines visible at once.
const editorHeight = 10

type openedMsg struct {
	lesson *curriculum.Lesson
	err    error
}

type ranMsg struct {
	result *runner.Result
	err    error
}

// LessonScreen shows one curriculum day and runs the learner's solution.
type LessonScreen struct {
	deps   screen.Deps
	model  *progress.Model
	runner *runner.Runner
	day    int

	lesson   *curriculum.Lesson
	editor   components.Editor
	scroll   int
	showHint bool
	running  bool
	result   *runner.Result
	errMsg   string
}

var _ screen.Screen = (*LessonScreen)(nil)
var _ screen.KeyHintProvider = (*LessonScreen)(nil)
var _ screen.Closer = (*LessonScreen)(nil)

// New creates a LessonScreen for day, running code through the client and
// recording completions in model.
func New(deps screen.Deps, model *progress.Model, day int) *LessonScreen {
	return &LessonScreen{
		deps:   deps,
		model:  model,
		runner: runner.New(deps.Client, deps.Client, model),
		day:    day,
	}
}

func (l *LessonScreen) Title() string {
	if l.lesson != nil {
		return fmt.Sprintf("Day %d: %s", l.day, l.lesson.Title)
	}
	return fmt.Sprintf("Day %d", l.day)
}

func (l *LessonScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Ctrl+R", Description: "Run"},
		{Key: "Ctrl+T", Description: "Hint"},
		{Key: "Ctrl+S", Description: "Ask Sensei"},
		{Key: "PgUp/PgDn", Description: "Scroll lesson"},
		{Key: "Esc", Description: "Back"},
	}
}

// Close abandons the lesson and any run still in flight.
func (l *LessonScreen) Close() {
	l.runner.Close()
}

func (l *LessonScreen) Init() tea.Cmd {
	r, day := l.runner, l.day
	return func() tea.Msg {
		lesson, err := r.Open(context.Background(), day)
		return openedMsg{lesson: lesson, err: err}
	}
}

func (l *LessonScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case openedMsg:
		if msg.err != nil {
			l.errMsg = openError(l.day, msg.err)
			return l, nil
		}
		l.lesson = msg.lesson
		l.editor = components.NewEditor(msg.lesson.Exercise.StarterCode)
		return l, l.editor.Focus()

	case ranMsg:
		if errors.Is(msg.err, runner.ErrStale) {
			return l, nil
		}
		l.running = false
		l.result = msg.result
		l.errMsg = ""
		if msg.err != nil {
			l.errMsg = runError(msg.err)
		}
		return l, nil

	case tea.KeyPressMsg:
		if l.lesson == nil {
			return l, nil
		}
		switch msg.String() {
		case "ctrl+r":
			return l, l.run()
		case "ctrl+t":
			l.showHint = !l.showHint
			return l, nil
		case "ctrl+s":
			return l, l.openSensei()
		case "pgdown":
			l.scroll++
			return l, nil
		case "pgup":
			l.scroll = max(0, l.scroll-1)
			return l, nil
		}
	}

	if l.lesson == nil {
		return l, nil
	}
	var cmd tea.Cmd
	l.editor, cmd = l.editor.Update(msg)
	return l, cmd
}

func (l *LessonScreen) run() tea.Cmd {
	if l.running {
		return nil
	}
	l.running = true
	l.errMsg = ""
	r, code := l.runner, l.editor.Code()
	return func() tea.Msg {
		res, err := r.Run(context.Background(), code)
		return ranMsg{result: res, err: err}
	}
}

func (l *LessonScreen) openSensei() tea.Cmd {
	lesson, model := l.lesson, l.model
	editor := &l.editor
	s := chat.New(l.deps, "Sensei · Day "+fmt.Sprint(l.day), sensei.LessonScope(l.day), func() api.SenseiContext {
		sc := api.SenseiContext{
			Day:         lesson.Day,
			LessonTitle: lesson.Title,
			Exercise:    lesson.Exercise.Description,
			Code:        editor.Code(),
		}
		if st, ok := model.State(); ok {
			sc.CurrentDay = st.CurrentDay()
			sc.CompletedDays = st.CompletedDays()
		}
		return sc
	})
	return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
}

func openError(day int, err error) string {
	switch {
	case errors.Is(err, runner.ErrLocked):
		return fmt.Sprintf("Day %d is locked. Finish the days before it first!", day)
	case api.IsNotFound(err):
		return fmt.Sprintf("Day %d has no lesson yet.", day)
	case api.IsNetwork(err):
		return "Cannot reach HackDojo. Check your connection and try again."
	}
	return err.Error()
}

func runError(err error) string {
	if api.IsNetwork(err) {
		return "Could not run your code: cannot reach HackDojo."
	}
	return "Could not run your code: " + err.Error()
}

func (l *LessonScreen) View(width, height int) string {
	if l.lesson == nil {
		msg := theme.Hint.Render("Opening lesson...")
		if l.errMsg != "" {
			msg = components.ErrorLine(l.errMsg) + "\n\n" + theme.Hint.Render("press Esc to go back")
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
	}

	cw := components.ContentWidth(width)
	l.editor.SetSize(cw-4, editorHeight)

	exercise := l.renderExercise(cw)
	editor := components.Card("Your code", l.editor.View(), cw)
	results := l.renderResults(cw)

	used := lipgloss.Height(exercise) + lipgloss.Height(editor) + lipgloss.Height(results) + 3
	reading := l.renderReading(cw, max(height-used, 3))

	sections := []string{reading, exercise, editor}
	if results != "" {
		sections = append(sections, results)
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, strings.Join(sections, "\n"))
}

// renderReading shows a window of the lesson text starting at the scroll offset.
func (l *LessonScreen) renderReading(width, height int) string {
	text := lipgloss.NewStyle().Width(width - 4).Render(l.lesson.Content)
	lines := strings.Split(text, "\n")
	window := max(height-2, 1)
	l.scroll = min(l.scroll, max(len(lines)-window, 0))
	end := min(l.scroll+window, len(lines))
	body := strings.Join(lines[l.scroll:end], "\n")
	if end < len(lines) {
		body += "\n" + theme.Hint.Render("PgDn for more")
	}
	return theme.Body.Render(body)
}

func (l *LessonScreen) renderExercise(width int) string {
	ex := l.lesson.Exercise
	body := theme.Body.Width(width - 4).Render(ex.Description)
	if l.showHint {
		hint := ex.Hint
		if hint == "" {
			hint = "No hint for this one. Try asking Sensei!"
		}
		body += "\n\n" + theme.Hint.Width(width-4).Render("Hint: "+hint)
	}
	status := ""
	if l.model != nil && l.model.IsCompleted(l.day) {
		status = "  " + theme.Correct.Render("✓ completed")
	}
	return theme.Title.Render("Exercise") + status + "\n" + body
}

func (l *LessonScreen) renderResults(width int) string {
	if l.running {
		return theme.Hint.Render("Running your code...")
	}
	if l.errMsg != "" {
		return components.ErrorLine(l.errMsg)
	}
	if l.result == nil {
		return ""
	}
	total := 0
	if l.model != nil {
		total = l.model.Catalog().TotalDays()
	}
	return renderResult(l.result, total, width)
}

// renderResult formats a run for display.
func renderResult(res *runner.Result, totalDays, width int) string {
	var lines []string
	switch res.Outcome {
	case runner.OutcomePassed:
		lines = append(lines, theme.Correct.Render("✓ All tests passed!"))
		switch {
		case res.Completed:
			done := fmt.Sprintf("Day %d complete!", res.Day)
			if res.Day < totalDays && res.Progress.IsUnlocked(res.Day+1) {
				done += fmt.Sprintf(" Day %d is unlocked.", res.Day+1)
			}
			lines = append(lines, theme.Correct.Render(done))
		case res.CompletionErr != nil:
			lines = append(lines, components.ErrorLine("Could not save your progress: "+res.CompletionErr.Error()))
		}
	case runner.OutcomeFailed:
		lines = append(lines, theme.Incorrect.Render("✗ Not quite. Check the expected output."))
	case runner.OutcomeExecError:
		lines = append(lines, theme.Incorrect.Render("✗ Your program hit an error."))
	case runner.OutcomeNoTests:
		lines = append(lines, theme.Subtitle.Render("Program output:"))
	}

	for i, c := range res.Cases {
		if res.Outcome == runner.OutcomeNoTests {
			lines = append(lines, theme.Code.Render(strings.TrimRight(c.Output, "\n")))
			continue
		}
		mark := theme.Correct.Render("✓")
		if !c.Passed {
			mark = theme.Incorrect.Render("✗")
		}
		line := fmt.Sprintf("%s Test %d", mark, i+1)
		if c.Case.Input != "" {
			line += theme.Subtitle.Render("  input: " + oneLine(c.Case.Input))
		}
		lines = append(lines, line)
		if !c.Passed {
			lines = append(lines,
				theme.Subtitle.Render("    expected: ")+theme.Code.Render(oneLine(c.Case.Expected)),
				theme.Subtitle.Render("    got:      ")+theme.Code.Render(oneLine(c.Output)))
		}
		if c.Error != "" {
			lines = append(lines, theme.Incorrect.Width(width-4).Render(strings.TrimSpace(c.Error)))
		}
	}
	return strings.Join(lines, "\n")
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "⏎")
}
