package devserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/llm"
	"github.com/hackdojo/hackdojo/internal/progress"
	"github.com/hackdojo/hackdojo/internal/runner"
	"github.com/hackdojo/hackdojo/internal/session"
)

// scriptedExecutor answers runs without a Python interpreter.
type scriptedExecutor struct {
	fn func(code string, inputs []string) (Execution, error)
}

func (e scriptedExecutor) Execute(_ context.Context, code string, inputs []string) (Execution, error) {
	return e.fn(code, inputs)
}

func (e scriptedExecutor) Limit() time.Duration { return 5 * time.Second }

// echoHello prints Hello, World! when the code asks for it and echoes
// stdin otherwise.
var echoHello = scriptedExecutor{fn: func(code string, inputs []string) (Execution, error) {
	switch {
	case strings.Contains(code, "while True"):
		return Execution{}, ErrTimeout
	case strings.Contains(code, "raise"):
		return Execution{Stderr: "Traceback (most recent call last):\nValueError\n", ExitCode: 1}, nil
	case strings.Contains(code, "Hello, World!"):
		return Execution{Stdout: "Hello, World!\n"}, nil
	}
	return Execution{Stdout: strings.Join(inputs, "\n") + "\n"}, nil
}}

type staticToken string

func (t staticToken) Token() string            { return string(t) }
func (t staticToken) Invalidate(string, error) {}

type testEnv struct {
	server *Server
	http   *httptest.Server
	clock  *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	clk := &clock{now: time.Now()}
	cfg := Config{
		Secret:   []byte("test-secret"),
		TokenTTL: time.Hour,
		Executor: echoHello,
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		HashCost: bcrypt.MinCost,
		SeedDemo: true,
		Now:      clk.Now,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &testEnv{server: srv, http: ts, clock: clk}
}

func (e *testEnv) client() *api.Client {
	return api.New(e.http.URL + "/api")
}

// signIn logs in as email and returns a client carrying the token.
func (e *testEnv) signIn(t *testing.T, email string) (*api.Client, *api.User) {
	t.Helper()
	res, err := e.client().Login(context.Background(), email, DemoPassword)
	require.NoError(t, err)
	require.NotNil(t, res.User)
	return api.New(e.http.URL+"/api", api.WithCredentials(staticToken(res.Token))), res.User
}

func TestLoginAndProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.client().Login(ctx, "Student@HackDojo.dev ", DemoPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, api.RoleStudent, res.User.Role)
	assert.Equal(t, "Sam", res.User.DisplayName)

	u, err := env.client().Profile(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)
	assert.Equal(t, "student@hackdojo.dev", u.Email)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.client().Login(context.Background(), "student@hackdojo.dev", "wrong-password")
	require.Error(t, err)
	assert.True(t, api.IsAuth(err))
}

func TestExpiredTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.client().Login(context.Background(), "student@hackdojo.dev", DemoPassword)
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	_, err = env.client().Profile(context.Background(), res.Token)
	require.Error(t, err)
	assert.True(t, api.IsAuth(err))
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.client().Register(ctx, "new.parent@example.com", "Sunrise42", api.RoleParent)
	require.NoError(t, err)
	assert.Equal(t, api.RoleParent, res.User.Role)
	assert.Equal(t, "new.parent", res.User.DisplayName)

	_, err = env.client().Register(ctx, "new.parent@example.com", "Sunrise42", api.RoleParent)
	require.Error(t, err)
	assert.True(t, api.IsValidation(err), "duplicate email: %v", err)

	_, err = env.client().Register(ctx, "not-an-email", "Sunrise42", api.RoleStudent)
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	_, err = env.client().Register(ctx, "boss@example.com", "Sunrise42", api.RoleAdmin)
	require.Error(t, err)
	assert.True(t, api.IsValidation(err), "admins cannot self-register")
}

func TestCurriculumAndLesson(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn(t, "student@hackdojo.dev")
	ctx := context.Background()

	cat, err := c.Curriculum(ctx)
	require.NoError(t, err)
	doc, err := curriculum.Default()
	require.NoError(t, err)
	assert.Equal(t, doc.Catalog.TotalDays(), cat.TotalDays())
	assert.Equal(t, "White Belt", cat.First().Name)
	assert.Equal(t, "Hello, Python", cat.Title(1))

	lesson, err := c.Lesson(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Reading Input", lesson.Title)
	assert.Len(t, lesson.Exercise.TestCases, 2)

	_, err = c.Lesson(ctx, 999)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestProgressLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn(t, "student@hackdojo.dev")
	ctx := context.Background()

	_, err := c.Progress(ctx)
	require.ErrorIs(t, err, api.ErrProgressNotInitialized)

	rec, err := c.InitProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CurrentDay)
	assert.Empty(t, rec.CompletedDays)

	rec, err = c.UpdateProgress(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentDay)
	assert.Equal(t, []int{1}, rec.CompletedDays)

	again, err := c.UpdateProgress(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, rec, again, "repeating a completion changes nothing")

	rec, err = c.UpdateProgress(ctx, 3, true)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.CurrentDay)
	assert.Equal(t, "Yellow Belt", rec.CurrentBelt)

	// Completing an earlier day never moves the current day back.
	rec, err = c.UpdateProgress(ctx, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.CurrentDay)
	assert.Equal(t, []int{1, 2, 3}, rec.CompletedDays)

	_, err = c.UpdateProgress(ctx, 9999, true)
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
}

func TestProgressClampsToCurriculumLength(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn(t, "student@hackdojo.dev")
	total := env.server.doc.Catalog.TotalDays()

	rec, err := c.UpdateProgress(context.Background(), total, true)
	require.NoError(t, err)
	assert.Equal(t, total, rec.CurrentDay)
}

func TestModelAndRunnerAgainstServer(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn(t, "student@hackdojo.dev")
	ctx := context.Background()

	cat, err := c.Curriculum(ctx)
	require.NoError(t, err)
	model := progress.NewModel(c, cat)

	st, err := model.Load(ctx)
	require.NoError(t, err, "load initializes progress on first use")
	assert.Equal(t, 1, st.CurrentDay())

	r := runner.New(c, c, model)
	_, err = r.Open(ctx, 2)
	require.ErrorIs(t, err, runner.ErrLocked)

	_, err = r.Open(ctx, 1)
	require.NoError(t, err)
	res, err := r.Run(ctx, `print("Hello, World!")`)
	require.NoError(t, err)
	assert.Equal(t, runner.OutcomePassed, res.Outcome)
	assert.True(t, res.Completed)
	require.NoError(t, res.CompletionErr)
	assert.Equal(t, 2, res.Progress.CurrentDay())

	srvRec, err := c.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, srvRec.CompletedDays)

	_, err = r.Open(ctx, 2)
	require.NoError(t, err, "day 2 unlocks once day 1 is complete")
	res, err = r.Run(ctx, "print(input())")
	require.NoError(t, err)
	assert.Equal(t, runner.OutcomeFailed, res.Outcome)
	assert.False(t, model.IsCompleted(2))
}

func TestRunErrors(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn(t, "student@hackdojo.dev")
	ctx := context.Background()

	out, err := c.Execute(ctx, api.ExecRequest{Code: "raise ValueError()"})
	require.NoError(t, err)
	assert.Contains(t, out.Error, "ValueError")

	_, err = c.Execute(ctx, api.ExecRequest{Code: "while True: pass"})
	require.Error(t, err)
	var execErr *api.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "5 second limit")

	out, err = c.Execute(ctx, api.ExecRequest{Code: "print(input())", Inputs: []string{"Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada\n", out.Output)
	assert.Empty(t, out.Error)
}

func TestRunRejectsBlankCode(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/api/run", strings.NewReader(`{"code":"   "}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenOf(t, env, "student@hackdojo.dev"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func tokenOf(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	res, err := env.client().Login(context.Background(), email, DemoPassword)
	require.NoError(t, err)
	return res.Token
}

func TestSenseiHint(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.signIn(t, "student@hackdojo.dev")

	answer, err := c.AskSensei(context.Background(), api.SenseiRequest{
		Question: "How do I start?",
		Context:  api.SenseiContext{Day: 1},
	})
	require.NoError(t, err)
	assert.Contains(t, answer, "Hello, Python")
	assert.Contains(t, answer, "quotes")
}

func TestSenseiWithModel(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON(map[string]string{"response": "What does print() need around text?"}))
	env := newTestEnv(t, func(c *Config) { c.Assistant = mock })
	c, _ := env.signIn(t, "student@hackdojo.dev")

	answer, err := c.AskSensei(context.Background(), api.SenseiRequest{
		Question: "Why does my code fail?",
		Context:  api.SenseiContext{Day: 1, Code: "print(Hello)"},
	})
	require.NoError(t, err)
	assert.Equal(t, "What does print() need around text?", answer)
	require.Equal(t, 1, mock.CallCount())
	last := mock.Calls[0].Messages[len(mock.Calls[0].Messages)-1]
	assert.Contains(t, last.Content, "print(Hello)")

	// An exhausted model falls back to the lesson hint.
	answer, err = c.AskSensei(context.Background(), api.SenseiRequest{Question: "Again?", Context: api.SenseiContext{Day: 1}})
	require.NoError(t, err)
	assert.Contains(t, answer, "Hello, Python")
}

func TestParentEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent, _ := env.signIn(t, "parent@hackdojo.dev")
	student, studentUser := env.signIn(t, "student@hackdojo.dev")

	kids, err := parent.Children(ctx)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "Sam", kids[0].Name)
	assert.Equal(t, studentUser.ID, kids[0].ID)
	assert.Equal(t, 1, kids[0].Progress.CurrentDay)

	_, err = student.UpdateProgress(ctx, 1, true)
	require.NoError(t, err)
	_, err = student.UpdateProgress(ctx, 2, false)
	require.NoError(t, err)

	rec, err := parent.ChildProgress(ctx, studentUser.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rec.CompletedDays)
	assert.Equal(t, 2, rec.CurrentDay)

	acts, err := parent.ChildActivity(ctx, studentUser.ID)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "Variables", acts[0].Lesson, "newest first")
	assert.False(t, acts[0].Success)
	assert.Equal(t, "Hello, Python", acts[1].Lesson)
	assert.True(t, acts[1].Success)
	_, err = time.Parse(time.RFC3339, acts[0].Timestamp)
	assert.NoError(t, err)

	kid, err := parent.AddChild(ctx, "Kai", 9)
	require.NoError(t, err)
	assert.Equal(t, "Kai", kid.Name)
	assert.Equal(t, 9, kid.Age)
	assert.Equal(t, 1, kid.Progress.CurrentDay)

	kids, err = parent.Children(ctx)
	require.NoError(t, err)
	assert.Len(t, kids, 2)

	admin, adminUser := env.signIn(t, "admin@hackdojo.dev")
	_, err = parent.ChildProgress(ctx, adminUser.ID)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err), "other accounts are not the parent's children")

	_, err = student.Children(ctx)
	require.Error(t, err)
	assert.True(t, api.IsAuth(err))
	_, err = admin.Children(ctx)
	assert.True(t, api.IsAuth(err))
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, adminUser := env.signIn(t, "admin@hackdojo.dev")
	student, studentUser := env.signIn(t, "student@hackdojo.dev")

	users, err := admin.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, err = student.UpdateProgress(ctx, 3, true)
	require.NoError(t, err)

	stats, err := admin.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalStudents)
	assert.Equal(t, 1, stats.BeltDistribution["Yellow Belt"])
	assert.Equal(t, 0, stats.BeltDistribution["White Belt"])

	require.NoError(t, admin.SetUserRole(ctx, studentUser.ID, api.RoleParent))
	_, err = student.Children(ctx)
	assert.NoError(t, err, "the new role applies to the existing token")

	err = admin.SetUserRole(ctx, "9999", api.RoleStudent)
	assert.True(t, api.IsNotFound(err))

	err = admin.SetUserRole(ctx, adminUser.ID, api.RoleStudent)
	assert.True(t, api.IsValidation(err))

	_, err = student.Users(ctx)
	assert.True(t, api.IsAuth(err))
}

func TestForbiddenSignsOutSession(t *testing.T) {
	env := newTestEnv(t)
	client := env.client()
	mgr := session.NewManager(client, nil)
	client.SetCredentials(mgr)

	dest, err := mgr.Login(context.Background(), "student@hackdojo.dev", DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, session.LandingDashboard, dest)

	_, err = client.Analytics(context.Background())
	require.Error(t, err)
	assert.Equal(t, session.PhaseUnauthenticated, mgr.Phase())
	assert.Empty(t, mgr.Token())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.client().Login(context.Background(), "student@hackdojo.dev", DemoPassword)
	_, _ = env.client().Login(context.Background(), "student@hackdojo.dev", "nope")

	resp, err := http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `hackdojo_http_requests_total{method="POST",route="/api/auth/login",status="200"} 1`)
	assert.Contains(t, text, `hackdojo_http_requests_total{method="POST",route="/api/auth/login",status="401"} 1`)
	assert.Contains(t, text, `hackdojo_logins_total{result="failure"} 1`)
}

func TestPythonExecutor(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}
	ctx := context.Background()

	p := PythonExecutor{Python: python, Timeout: 5 * time.Second}
	out, err := p.Execute(ctx, "name = input()\nprint(f'Hello, {name}!')", []string{"Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!\n", out.Stdout)
	assert.Zero(t, out.ExitCode)

	out, err = p.Execute(ctx, "raise ValueError('boom')", nil)
	require.NoError(t, err)
	assert.NotZero(t, out.ExitCode)
	assert.Contains(t, out.Stderr, "ValueError: boom")

	p.Timeout = 300 * time.Millisecond
	_, err = p.Execute(ctx, "while True:\n    pass", nil)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}
