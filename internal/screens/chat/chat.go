// Package chat is the Sensei conversation screen.
package chat

import (
	"context"
	"errors"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/sensei"
	"github.com/hackdojo/hackdojo/internal/ui/components"
	"github.com/hackdojo/hackdojo/internal/ui/layout"
	"github.com/hackdojo/hackdojo/internal/ui/theme"
)

type openedMsg struct {
	chat *sensei.Chat
	err  error
}

type answeredMsg struct {
	err error
}

type clearedMsg struct {
	err error
}

// ChatScreen is a conversation with Sensei about one scope: a lesson day or
// the general session.
type ChatScreen struct {
	deps    screen.Deps
	title   string
	scope   string
	context func() api.SenseiContext

	chat   *sensei.Chat
	input  components.TextInput
	errMsg string

	ctx    context.Context
	cancel context.CancelFunc
}

var _ screen.Screen = (*ChatScreen)(nil)
var _ screen.KeyHintProvider = (*ChatScreen)(nil)
var _ screen.Closer = (*ChatScreen)(nil)

// New creates a ChatScreen. sc is called at ask time so the question carries
// the learner's latest code and progress.
func New(deps screen.Deps, title, scope string, sc func() api.SenseiContext) *ChatScreen {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatScreen{
		deps:    deps,
		title:   title,
		scope:   scope,
		context: sc,
		input:   components.NewTextInput("Ask Sensei", "How do I ...?", 500),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *ChatScreen) Title() string {
	return c.title
}

func (c *ChatScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Ask"},
		{Key: "Ctrl+L", Description: "Clear chat"},
		{Key: "Esc", Description: "Back"},
	}
}

// Close cancels a question still waiting for its answer.
func (c *ChatScreen) Close() {
	c.cancel()
}

func (c *ChatScreen) Init() tea.Cmd {
	ctx, deps, scope := c.ctx, c.deps, c.scope
	open := func() tea.Msg {
		opts := []sensei.Option{sensei.WithRateLimit(deps.SenseiRate)}
		if deps.Transcripts != nil {
			opts = append(opts, sensei.WithTranscript(deps.Transcripts))
		}
		ch, err := sensei.NewChat(ctx, scope, deps.Assistant, opts...)
		return openedMsg{chat: ch, err: err}
	}
	return tea.Batch(open, c.input.Focus())
}

func (c *ChatScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case openedMsg:
		if msg.err != nil {
			c.errMsg = "Could not load the conversation: " + msg.err.Error()
			return c, nil
		}
		c.chat = msg.chat
		return c, nil

	case answeredMsg:
		c.errMsg = rejection(msg.err)
		return c, nil

	case clearedMsg:
		if msg.err != nil {
			c.errMsg = msg.err.Error()
		}
		return c, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "enter":
			return c, c.ask()
		case "ctrl+l":
			return c, c.clear()
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c *ChatScreen) ask() tea.Cmd {
	if c.chat == nil || c.chat.Pending() {
		return nil
	}
	question := c.input.Value()
	if question == "" {
		return nil
	}
	c.input.Reset()
	c.errMsg = ""

	var sc api.SenseiContext
	if c.context != nil {
		sc = c.context()
	}
	ctx, ch := c.ctx, c.chat
	return func() tea.Msg {
		_, err := ch.Ask(ctx, question, sc)
		return answeredMsg{err: err}
	}
}

func (c *ChatScreen) clear() tea.Cmd {
	if c.chat == nil || c.chat.Pending() {
		return nil
	}
	ctx, ch := c.ctx, c.chat
	return func() tea.Msg {
		return clearedMsg{err: ch.Clear(ctx)}
	}
}

// rejection returns the message for errors that did not make it into the
// transcript. Assistant failures are already shown as an "Error:" reply.
func rejection(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, sensei.ErrTooManyQuestions):
		return "Slow down a little! Sensei needs a moment before the next question."
	case errors.Is(err, sensei.ErrBusy):
		return "Sensei is still answering your last question."
	case api.IsValidation(err):
		return "Type a question first."
	}
	return ""
}

func (c *ChatScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var footer []string
	if c.chat != nil && c.chat.Pending() {
		footer = append(footer, theme.Hint.Render("Sensei is thinking..."))
	}
	if c.errMsg != "" {
		footer = append(footer, components.ErrorLine(c.errMsg))
	}
	footer = append(footer, c.input.View())
	bottom := strings.Join(footer, "\n")

	avail := max(height-lipgloss.Height(bottom)-2, 3)
	transcript := c.renderTranscript(cw, avail)

	content := transcript + "\n\n" + bottom
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, content)
}

// renderTranscript renders the newest messages that fit in height lines.
func (c *ChatScreen) renderTranscript(width, height int) string {
	if c.chat == nil {
		return theme.Hint.Render("Opening your conversation...")
	}
	msgs := c.chat.Messages()

	var blocks []string
	used := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		block := renderMessage(msgs[i], width)
		h := lipgloss.Height(block) + 1
		if used+h > height && len(blocks) > 0 {
			break
		}
		blocks = append(blocks, block)
		used += h
	}

	// blocks were collected newest first
	var b strings.Builder
	for i := len(blocks) - 1; i >= 0; i-- {
		b.WriteString(blocks[i])
		if i > 0 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func renderMessage(m sensei.Message, width int) string {
	body := lipgloss.NewStyle().Width(width - 4).Foreground(theme.Text)
	if m.Sender == sensei.SenderUser {
		who := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render("You")
		return lipgloss.NewStyle().PaddingLeft(4).Render(who + "\n" + body.Render(m.Text))
	}
	who := theme.Title.Render("Sensei")
	if strings.HasPrefix(m.Text, "Error: ") {
		body = body.Foreground(theme.Error)
	}
	return who + "\n" + body.Render(m.Text)
}
