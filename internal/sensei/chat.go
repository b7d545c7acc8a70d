// Package sensei is the in-app assistant: an append-only chat transcript
// per lesson or session, answered by the backend or by a local model.
package sensei

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/store"
)

// Greeting opens every transcript.
const Greeting = "Hello! I'm Sensei. How can I help you with your Python journey?"

const (
	// DefaultTimeout bounds one question.
	DefaultTimeout = 10 * time.Second

	// historyWindow is how many earlier messages travel with a question.
	historyWindow = 6

	// SessionScope is the transcript used outside any lesson.
	SessionScope = "session"
)

var (
	// ErrTooManyQuestions is returned when questions arrive faster than the
	// configured pace. Nothing is appended.
	ErrTooManyQuestions = errors.New("sensei: too many questions, wait a moment")

	// ErrBusy is returned while an earlier question is unanswered.
	ErrBusy = errors.New("sensei: still answering the previous question")
)

// LessonScope is the transcript key for a lesson day.
func LessonScope(day int) string {
	return fmt.Sprintf("lesson:%d", day)
}

// Sender is who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one transcript entry.
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	Timestamp time.Time
}

// Chat is one transcript and the assistant answering it.
type Chat struct {
	assistant Assistant
	repo      store.TranscriptRepo
	limiter   *rate.Limiter
	timeout   time.Duration
	scope     string
	now       func() time.Time

	mu       sync.Mutex
	messages []Message
	pending  bool
}

// Option configures a Chat.
type Option func(*Chat)

// WithTranscript persists the transcript in repo.
func WithTranscript(repo store.TranscriptRepo) Option {
	return func(c *Chat) { c.repo = repo }
}

// WithRateLimit allows perMinute questions per minute with a burst of two.
// Zero disables pacing.
func WithRateLimit(perMinute int) Option {
	return func(c *Chat) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 2)
	}
}

// WithTimeout bounds each question.
func WithTimeout(d time.Duration) Option {
	return func(c *Chat) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChat opens the transcript for scope, loading any cached messages.
func NewChat(ctx context.Context, scope string, assistant Assistant, opts ...Option) (*Chat, error) {
	c := &Chat{
		assistant: assistant,
		timeout:   DefaultTimeout,
		scope:     scope,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.messages = []Message{c.greeting()}
	if c.repo == nil {
		return c, nil
	}
	rows, err := c.repo.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load transcript %s: %w", scope, err)
	}
	for _, r := range rows {
		c.messages = append(c.messages, Message{
			ID:        r.MessageID,
			Sender:    Sender(r.Sender),
			Text:      r.Text,
			Timestamp: r.SentAt,
		})
	}
	return c, nil
}

// Scope returns the transcript key.
func (c *Chat) Scope() string { return c.scope }

// Messages returns the transcript, greeting first.
func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Pending reports whether a question is awaiting its answer.
func (c *Chat) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Ask appends question, asks the assistant and appends its answer. If the
// assistant fails, an "Error: ..." message is appended instead and the
// error is returned; the question stays in the transcript either way.
func (c *Chat) Ask(ctx context.Context, question string, sc api.SenseiContext) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, &api.ValidationError{Field: "question", Message: "is required"}
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return Message{}, ErrTooManyQuestions
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.pending = true
	sc.History = history(c.messages[1:])
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	}()

	c.append(ctx, SenderUser, question)

	askCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	answer, err := c.assistant.Ask(askCtx, question, sc)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = errors.New("empty answer")
	}
	if err != nil {
		return c.append(ctx, SenderAssistant, "Error: "+describe(err)), err
	}
	return c.append(ctx, SenderAssistant, answer), nil
}

// Clear drops the transcript back to the greeting.
func (c *Chat) Clear(ctx context.Context) error {
	if c.repo != nil {
		if err := c.repo.Clear(ctx, c.scope); err != nil {
			return fmt.Errorf("clear transcript %s: %w", c.scope, err)
		}
	}
	c.mu.Lock()
	c.messages = []Message{c.greeting()}
	c.mu.Unlock()
	return nil
}

func (c *Chat) greeting() Message {
	return Message{ID: "greeting", Sender: SenderAssistant, Text: Greeting, Timestamp: c.now()}
}

func (c *Chat) append(ctx context.Context, sender Sender, text string) Message {
	m := Message{ID: uuid.NewString(), Sender: sender, Text: text, Timestamp: c.now()}
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()

	if c.repo != nil {
		err := c.repo.Append(context.WithoutCancel(ctx), store.ChatMessage{
			Scope:     c.scope,
			MessageID: m.ID,
			Sender:    string(sender),
			Text:      text,
			SentAt:    m.Timestamp,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to save chat message: %v\n", err)
		}
	}
	return m
}

// history returns the last few messages as exchanges.
func history(msgs []Message) []api.Exchange {
	if len(msgs) > historyWindow {
		msgs = msgs[len(msgs)-historyWindow:]
	}
	out := make([]api.Exchange, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, api.Exchange{Sender: string(m.Sender), Text: m.Text})
	}
	return out
}

// describe turns an assistant failure into the text shown in the chat.
func describe(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Sensei took too long to answer. Please try again."
	case api.IsNetwork(err):
		var ne *api.NetworkError
		if errors.As(err, &ne) && ne.Timeout {
			return "Sensei took too long to answer. Please try again."
		}
		return "could not reach Sensei. Check your connection."
	case api.IsAuth(err):
		return "please sign in again."
	}
	return err.Error()
}
