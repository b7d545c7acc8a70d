package sensei

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/llm"
	"github.com/hackdojo/hackdojo/internal/store"
)

type fakeGateway struct {
	answer string
	err    error
	block  bool
	reqs   []api.SenseiRequest
}

func (g *fakeGateway) AskSensei(ctx context.Context, req api.SenseiRequest) (string, error) {
	g.reqs = append(g.reqs, req)
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.answer, g.err
}

func openTranscripts(t *testing.T) store.TranscriptRepo {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:sensei_%d?mode=memory&cache=shared", time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st.TranscriptRepo()
}

func TestNewChatStartsWithGreeting(t *testing.T) {
	c, err := NewChat(context.Background(), LessonScope(3), Remote(&fakeGateway{}))
	require.NoError(t, err)
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Greeting, msgs[0].Text)
	assert.Equal(t, SenderAssistant, msgs[0].Sender)
	assert.Equal(t, "lesson:3", c.Scope())
}

func TestAskAppendsQuestionAndAnswer(t *testing.T) {
	gw := &fakeGateway{answer: "Try a for loop over range(5)."}
	repo := openTranscripts(t)
	c, err := NewChat(context.Background(), LessonScope(4), Remote(gw), WithTranscript(repo))
	require.NoError(t, err)

	msg, err := c.Ask(context.Background(), "  how do I repeat?  ", api.SenseiContext{Day: 4, Code: "print(1)"})
	require.NoError(t, err)
	assert.Equal(t, "Try a for loop over range(5).", msg.Text)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, SenderUser, msgs[1].Sender)
	assert.Equal(t, "how do I repeat?", msgs[1].Text)

	require.Len(t, gw.reqs, 1)
	assert.Equal(t, "how do I repeat?", gw.reqs[0].Question)
	assert.Equal(t, 4, gw.reqs[0].Context.Day)
	assert.Empty(t, gw.reqs[0].Context.History, "greeting is not history")

	rows, err := repo.List(context.Background(), "lesson:4")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, msgs[2].ID, rows[1].MessageID)

	reopened, err := NewChat(context.Background(), LessonScope(4), Remote(gw), WithTranscript(repo))
	require.NoError(t, err)
	assert.Len(t, reopened.Messages(), 3)
}

func TestAskSendsRecentHistory(t *testing.T) {
	gw := &fakeGateway{answer: "ok"}
	c, err := NewChat(context.Background(), SessionScope, Remote(gw))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := c.Ask(context.Background(), fmt.Sprintf("q%d", i), api.SenseiContext{})
		require.NoError(t, err)
	}
	last := gw.reqs[len(gw.reqs)-1].Context.History
	require.Len(t, last, historyWindow)
	assert.Equal(t, "ok", last[len(last)-1].Text)
	assert.Equal(t, "q1", last[0].Text)
}

func TestAskFailureAppendsErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"network", &api.NetworkError{Op: "POST /sensei/ask", Err: errors.New("refused")}, "Error: could not reach Sensei. Check your connection."},
		{"server", &api.ServerError{Status: 500, Message: "boom"}, "Error: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChat(context.Background(), SessionScope, Remote(&fakeGateway{err: tt.err}))
			require.NoError(t, err)

			msg, err := c.Ask(context.Background(), "help", api.SenseiContext{})
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, strings.HasPrefix(msg.Text, tt.want), msg.Text)

			msgs := c.Messages()
			require.Len(t, msgs, 3)
			assert.Equal(t, "help", msgs[1].Text)
			assert.False(t, c.Pending())
		})
	}
}

func TestAskTimesOut(t *testing.T) {
	c, err := NewChat(context.Background(), SessionScope, Remote(&fakeGateway{block: true}), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	msg, err := c.Ask(context.Background(), "anyone there?", api.SenseiContext{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "Error: Sensei took too long to answer. Please try again.", msg.Text)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	gw := &fakeGateway{answer: "x"}
	c, err := NewChat(context.Background(), SessionScope, Remote(gw))
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "   ", api.SenseiContext{})
	assert.True(t, api.IsValidation(err))
	assert.Len(t, c.Messages(), 1)
	assert.Empty(t, gw.reqs)
}

func TestRateLimit(t *testing.T) {
	gw := &fakeGateway{answer: "x"}
	c, err := NewChat(context.Background(), SessionScope, Remote(gw), WithRateLimit(1))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.Ask(context.Background(), "q", api.SenseiContext{})
		require.NoError(t, err)
	}
	_, err = c.Ask(context.Background(), "q", api.SenseiContext{})
	assert.ErrorIs(t, err, ErrTooManyQuestions)
	assert.Len(t, gw.reqs, 2)
	assert.Len(t, c.Messages(), 5)
}

func TestClear(t *testing.T) {
	repo := openTranscripts(t)
	c, err := NewChat(context.Background(), LessonScope(1), Remote(&fakeGateway{answer: "hi"}), WithTranscript(repo))
	require.NoError(t, err)
	_, err = c.Ask(context.Background(), "hello", api.SenseiContext{})
	require.NoError(t, err)

	require.NoError(t, c.Clear(context.Background()))
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Greeting, msgs[0].Text)

	rows, err := repo.List(context.Background(), LessonScope(1))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLocalAssistant(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON(map[string]string{"response": " Use input() to read a line. "}))
	a := Local(mock)

	answer, err := a.Ask(context.Background(), "how do I read input?", api.SenseiContext{
		Day:         2,
		LessonTitle: "Input",
		Code:        "name = ",
		History: []api.Exchange{
			{Sender: "user", Text: "hi"},
			{Sender: "assistant", Text: "hello"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Use input() to read a line.", answer)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	require.Len(t, req.Messages, 3)
	assert.Equal(t, llm.RoleAssistant, req.Messages[1].Role)
	final := req.Messages[2].Content
	assert.Contains(t, final, `"lesson_title": "Input"`)
	assert.Contains(t, final, "Question: how do I read input?")
	assert.NotContains(t, final, "history")
	assert.Equal(t, "sensei-answer", req.Schema.Name)
}

func TestLocalAssistantFailure(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON(map[string]string{"answer": "wrong shape"}))
	_, err := Local(mock).Ask(context.Background(), "q", api.SenseiContext{})
	var inv *llm.ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}

func TestPromptWithoutContext(t *testing.T) {
	assert.Equal(t, "Question: why?", Prompt("why?", api.SenseiContext{}))
}
