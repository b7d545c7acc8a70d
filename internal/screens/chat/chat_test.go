package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/sensei"
)

type fakeAssistant struct {
	mu       sync.Mutex
	answer   string
	err      error
	contexts []api.SenseiContext
}

func (f *fakeAssistant) Ask(_ context.Context, _ string, sc api.SenseiContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts = append(f.contexts, sc)
	return f.answer, f.err
}

func open(t *testing.T, a sensei.Assistant, sc func() api.SenseiContext) *ChatScreen {
	t.Helper()
	c := New(screen.Deps{Assistant: a, SenseiRate: 60}, "Sensei", sensei.SessionScope, sc)
	c.Update(openChat(t, c))
	return c
}

func openChat(t *testing.T, c *ChatScreen) tea.Msg {
	t.Helper()
	ch, err := sensei.NewChat(c.ctx, c.scope, c.deps.Assistant, sensei.WithRateLimit(c.deps.SenseiRate))
	require.NoError(t, err)
	return openedMsg{chat: ch}
}

func typeQuestion(c *ChatScreen, q string) {
	for _, r := range q {
		c.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func TestGreetingShown(t *testing.T) {
	c := open(t, &fakeAssistant{answer: "hi"}, nil)
	assert.Contains(t, c.View(100, 30), "Hello! I'm Sensei.")
}

func TestAskShowsAnswerWithContext(t *testing.T) {
	a := &fakeAssistant{answer: "Use a for loop."}
	c := open(t, a, func() api.SenseiContext { return api.SenseiContext{Day: 4, Code: "print(1)"} })
	c.input.Focus()

	typeQuestion(c, "How do I repeat?")
	_, cmd := c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	c.Update(cmd())

	view := c.View(100, 30)
	assert.Contains(t, view, "How do I repeat?")
	assert.Contains(t, view, "Use a for loop.")
	require.Len(t, a.contexts, 1)
	assert.Equal(t, 4, a.contexts[0].Day)
	assert.Equal(t, "print(1)", a.contexts[0].Code)
	assert.Empty(t, c.input.Value())
}

func TestAssistantFailureShownInTranscript(t *testing.T) {
	c := open(t, &fakeAssistant{err: errors.New("model offline")}, nil)
	c.input.Focus()
	typeQuestion(c, "help")
	_, cmd := c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	c.Update(cmd())
	assert.Contains(t, c.View(100, 30), "Error:")
	assert.Empty(t, c.errMsg)
}

func TestEmptyQuestionIgnored(t *testing.T) {
	c := open(t, &fakeAssistant{answer: "x"}, nil)
	_, cmd := c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestClear(t *testing.T) {
	c := open(t, &fakeAssistant{answer: "Use print."}, nil)
	c.input.Focus()
	typeQuestion(c, "how?")
	_, cmd := c.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	c.Update(cmd())
	require.Len(t, c.chat.Messages(), 3)

	_, cmd = c.Update(tea.KeyPressMsg{Code: 'l', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	c.Update(cmd())
	assert.Len(t, c.chat.Messages(), 1)
}

func TestRejectionMessages(t *testing.T) {
	assert.Contains(t, rejection(sensei.ErrTooManyQuestions), "Slow down")
	assert.Contains(t, rejection(sensei.ErrBusy), "still answering")
	assert.Empty(t, rejection(errors.New("assistant down")))
}

func TestCloseCancelsContext(t *testing.T) {
	c := New(screen.Deps{}, "Sensei", sensei.SessionScope, nil)
	c.Close()
	assert.Error(t, c.ctx.Err())
}
