package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/progress"
)

type fakeLessons map[int]*curriculum.Lesson

func (f fakeLessons) Lesson(_ context.Context, day int) (*curriculum.Lesson, error) {
	l, ok := f[day]
	if !ok {
		return nil, &api.NotFoundError{Resource: "lesson", Message: "Lesson not found"}
	}
	return l, nil
}

type fakeExecutor struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, req api.ExecRequest) (*api.ExecResult, error)
	calls []api.ExecRequest
}

func (f *fakeExecutor) Execute(ctx context.Context, req api.ExecRequest) (*api.ExecResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(ctx, req)
}

type fakeProgress struct {
	mu        sync.Mutex
	unlocked  map[int]bool
	completed []int
	err       error
}

func (f *fakeProgress) IsUnlocked(day int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unlocked[day]
}

func (f *fakeProgress) RecordCompletion(_ context.Context, day int) (progress.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return progress.State{}, f.err
	}
	f.completed = append(f.completed, day)
	return progress.NewState(day+1, "", f.completed), nil
}

func (f *fakeProgress) Completed() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.completed...)
}

func lessons() fakeLessons {
	return fakeLessons{
		1: {Day: 1, Title: "Print", Exercise: curriculum.Exercise{
			TestCases: []curriculum.TestCase{{Expected: "5"}},
		}},
		2: {Day: 2, Title: "Input", Exercise: curriculum.Exercise{
			TestCases: []curriculum.TestCase{
				{Input: "2\n3", Expected: "5"},
				{Input: "10\n-4", Expected: "6"},
			},
		}},
		3: {Day: 3, Title: "Free play"},
		4: {Day: 4, Title: "Loops", Exercise: curriculum.Exercise{
			TestCases: []curriculum.TestCase{{Expected: "Done", Match: curriculum.MatchContains}},
		}},
	}
}

func allUnlocked() *fakeProgress {
	return &fakeProgress{unlocked: map[int]bool{1: true, 2: true, 3: true, 4: true}}
}

func echo(output string) func(context.Context, api.ExecRequest) (*api.ExecResult, error) {
	return func(context.Context, api.ExecRequest) (*api.ExecResult, error) {
		return &api.ExecResult{Output: output}, nil
	}
}

func TestRunTrimmedMatchRecordsCompletion(t *testing.T) {
	p := allUnlocked()
	r := New(lessons(), &fakeExecutor{fn: echo("5\n")}, p)

	_, err := r.Open(context.Background(), 1)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "print(5)")
	require.NoError(t, err)
	assert.Equal(t, OutcomePassed, res.Outcome)
	assert.True(t, res.Completed)
	assert.Equal(t, 2, res.Progress.CurrentDay())
	assert.Equal(t, []int{1}, p.Completed())
}

func TestRunMismatchDoesNotMutate(t *testing.T) {
	p := allUnlocked()
	r := New(lessons(), &fakeExecutor{fn: echo("6\n")}, p)
	_, err := r.Open(context.Background(), 1)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "print(6)")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "6\n", res.Output())
	assert.False(t, res.Completed)
	assert.Empty(t, p.Completed())
}

func TestRunEachTestCaseWithItsInputs(t *testing.T) {
	exec := &fakeExecutor{fn: func(_ context.Context, req api.ExecRequest) (*api.ExecResult, error) {
		if strings.Join(req.Inputs, ",") == "2,3" {
			return &api.ExecResult{Output: "5"}, nil
		}
		return &api.ExecResult{Output: "6"}, nil
	}}
	p := allUnlocked()
	r := New(lessons(), exec, p)
	_, err := r.Open(context.Background(), 2)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "a=int(input());b=int(input());print(a+b)")
	require.NoError(t, err)
	assert.Equal(t, OutcomePassed, res.Outcome)
	require.Len(t, exec.calls, 2)
	assert.Equal(t, []string{"2", "3"}, exec.calls[0].Inputs)
	assert.Equal(t, []string{"10", "-4"}, exec.calls[1].Inputs)
	assert.Equal(t, 2, exec.calls[0].Day)
	assert.Equal(t, []int{2}, p.Completed())
}

func TestRunOneFailingCaseFailsTheRun(t *testing.T) {
	p := allUnlocked()
	r := New(lessons(), &fakeExecutor{fn: echo("5")}, p)
	_, err := r.Open(context.Background(), 2)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "print(5)")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, res.Cases, 2)
	assert.True(t, res.Cases[0].Passed)
	assert.False(t, res.Cases[1].Passed)
	assert.Empty(t, p.Completed())
}

func TestRunContainsMatch(t *testing.T) {
	p := allUnlocked()
	r := New(lessons(), &fakeExecutor{fn: echo("1\n2\nDone!\n")}, p)
	_, err := r.Open(context.Background(), 4)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "...")
	require.NoError(t, err)
	assert.Equal(t, OutcomePassed, res.Outcome)
}

func TestRunExecutionErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, api.ExecRequest) (*api.ExecResult, error)
		want string
	}{
		{
			name: "program raised",
			fn: func(context.Context, api.ExecRequest) (*api.ExecResult, error) {
				return &api.ExecResult{Error: "NameError: name 'x' is not defined"}, nil
			},
			want: "NameError: name 'x' is not defined",
		},
		{
			name: "timed out",
			fn: func(context.Context, api.ExecRequest) (*api.ExecResult, error) {
				return nil, &api.ExecutionError{Status: 408, Message: "Execution timed out"}
			},
			want: "Execution timed out",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := allUnlocked()
			r := New(lessons(), &fakeExecutor{fn: tt.fn}, p)
			_, err := r.Open(context.Background(), 1)
			require.NoError(t, err)

			res, err := r.Run(context.Background(), "print(x)")
			require.NoError(t, err)
			assert.Equal(t, OutcomeExecError, res.Outcome)
			assert.Equal(t, tt.want, res.Cases[0].Error)
			assert.Empty(t, p.Completed())
		})
	}
}

func TestRunGatewayErrorReturned(t *testing.T) {
	p := allUnlocked()
	netErr := &api.NetworkError{Op: "POST /run", Err: errors.New("refused")}
	r := New(lessons(), &fakeExecutor{fn: func(context.Context, api.ExecRequest) (*api.ExecResult, error) {
		return nil, netErr
	}}, p)
	_, err := r.Open(context.Background(), 1)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "print(5)")
	assert.ErrorIs(t, err, netErr)
	assert.Empty(t, p.Completed())
}

func TestRunWithoutTestCases(t *testing.T) {
	p := allUnlocked()
	exec := &fakeExecutor{fn: echo("hello")}
	r := New(lessons(), exec, p)
	_, err := r.Open(context.Background(), 3)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "print('hello')")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoTests, res.Outcome)
	assert.Equal(t, "hello", res.Output())
	assert.Len(t, exec.calls, 1)
	assert.Nil(t, exec.calls[0].Inputs)
	assert.Empty(t, p.Completed())
}

func TestRunCompletionFailureReported(t *testing.T) {
	p := allUnlocked()
	p.err = errors.New("server down")
	r := New(lessons(), &fakeExecutor{fn: echo("5")}, p)
	_, err := r.Open(context.Background(), 1)
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "print(5)")
	require.NoError(t, err)
	assert.Equal(t, OutcomePassed, res.Outcome)
	assert.False(t, res.Completed)
	assert.EqualError(t, res.CompletionErr, "server down")
}

func TestRunPreconditions(t *testing.T) {
	r := New(lessons(), &fakeExecutor{fn: echo("5")}, allUnlocked())

	_, err := r.Run(context.Background(), "print(5)")
	assert.ErrorIs(t, err, ErrNoLesson)

	_, err = r.Open(context.Background(), 1)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "  \n")
	assert.True(t, api.IsValidation(err))
}

func TestOpenLockedDay(t *testing.T) {
	p := &fakeProgress{unlocked: map[int]bool{1: true}}
	r := New(lessons(), &fakeExecutor{fn: echo("")}, p)
	_, err := r.Open(context.Background(), 2)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Nil(t, r.Lesson())
}

func TestOpenNotFound(t *testing.T) {
	p := &fakeProgress{unlocked: map[int]bool{9: true}}
	r := New(lessons(), &fakeExecutor{fn: echo("")}, p)
	_, err := r.Open(context.Background(), 9)
	assert.True(t, api.IsNotFound(err))
}

// A run for day 3 is in flight when the learner opens day 4; the day 3
// result must not reach day 4 or progress.
func TestStaleRunDiscarded(t *testing.T) {
	p := allUnlocked()
	started := make(chan struct{})
	release := make(chan struct{})
	exec := &fakeExecutor{fn: func(ctx context.Context, req api.ExecRequest) (*api.ExecResult, error) {
		if req.Day == 1 {
			close(started)
			<-release
			return &api.ExecResult{Output: "5"}, nil
		}
		return &api.ExecResult{Output: "Done"}, nil
	}}
	r := New(lessons(), exec, p)
	_, err := r.Open(context.Background(), 1)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "print(5)")
		errc <- err
	}()
	<-started

	_, err = r.Open(context.Background(), 4)
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errc, ErrStale)
	assert.Empty(t, p.Completed())
	assert.Equal(t, 4, r.Lesson().Day)
}

func TestOpenCancelsInFlightRun(t *testing.T) {
	p := allUnlocked()
	started := make(chan struct{})
	exec := &fakeExecutor{fn: func(ctx context.Context, req api.ExecRequest) (*api.ExecResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r := New(lessons(), exec, p)
	_, err := r.Open(context.Background(), 1)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "while True: pass")
		errc <- err
	}()
	<-started
	r.Close()

	assert.ErrorIs(t, <-errc, ErrStale)
	assert.Nil(t, r.Lesson())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "passed", OutcomePassed.String())
	assert.Equal(t, "error", OutcomeExecError.String())
}
