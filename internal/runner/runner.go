// Package runner drives one lesson at a time: open it, run code against its
// test cases and record completion when every case passes. Opening another
// lesson cancels whatever the previous one still had in flight, and results
// that arrive afterwards are discarded.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/progress"
)

var (
	// ErrLocked is returned when opening a day the learner has not unlocked.
	ErrLocked = errors.New("lesson is locked")

	// ErrNoLesson is returned by Run when no lesson is open.
	ErrNoLesson = errors.New("no lesson open")

	// ErrStale is returned when the lesson changed while a request was in
	// flight. Nothing was mutated.
	ErrStale = errors.New("lesson changed while request was in flight")
)

// LessonSource fetches lesson content.
type LessonSource interface {
	Lesson(ctx context.Context, day int) (*curriculum.Lesson, error)
}

// Executor runs learner code remotely.
type Executor interface {
	Execute(ctx context.Context, req api.ExecRequest) (*api.ExecResult, error)
}

// Progress is the slice of the progress model the runner needs.
type Progress interface {
	IsUnlocked(day int) bool
	RecordCompletion(ctx context.Context, day int) (progress.State, error)
}

// Outcome classifies a run.
type Outcome int

const (
	OutcomePassed    Outcome = iota // Every test case matched
	OutcomeFailed                   // Program ran but some output did not match
	OutcomeExecError                // Program raised, timed out or could not run
	OutcomeNoTests                  // Lesson has no test cases; output shown only
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	case OutcomeExecError:
		return "error"
	case OutcomeNoTests:
		return "ran"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// CaseResult is the result of one test case.
type CaseResult struct {
	Case   curriculum.TestCase
	Output string
	Error  string
	Passed bool
}

// Result is the result of a run.
type Result struct {
	Day     int
	Outcome Outcome
	Cases   []CaseResult

	// Completed is set when the run recorded the day as completed.
	Completed bool
	// Progress is the state after recording completion.
	Progress progress.State
	// CompletionErr is set when every case passed but recording failed.
	CompletionErr error
}

// Output returns the output of the last case that ran.
func (r *Result) Output() string {
	if len(r.Cases) == 0 {
		return ""
	}
	return r.Cases[len(r.Cases)-1].Output
}

// Runner holds the open lesson. It is safe for concurrent use.
type Runner struct {
	lessons  LessonSource
	exec     Executor
	progress Progress

	mu     sync.Mutex
	ticket uint64
	lesson *curriculum.Lesson
	active context.Context
	cancel context.CancelFunc
}

// New creates a Runner.
func New(lessons LessonSource, exec Executor, p Progress) *Runner {
	return &Runner{lessons: lessons, exec: exec, progress: p}
}

// Lesson returns the open lesson, or nil.
func (r *Runner) Lesson() *curriculum.Lesson {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lesson
}

// Open switches to day, cancelling the previous lesson's in-flight work, and
// fetches its content.
func (r *Runner) Open(ctx context.Context, day int) (*curriculum.Lesson, error) {
	ticket, active := r.switchTo()

	if !r.progress.IsUnlocked(day) {
		return nil, fmt.Errorf("day %d: %w", day, ErrLocked)
	}

	ctx, stop := bind(ctx, active)
	defer stop()

	lesson, err := r.lessons.Lesson(ctx, day)
	if r.stale(ticket) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticket != ticket {
		return nil, ErrStale
	}
	r.lesson = lesson
	return lesson, nil
}

// Run executes code once per test case and records completion when every
// case passes. Execution failures are reported in the Result; transport
// failures are returned as errors. Either way progress is only touched on a
// full pass.
func (r *Runner) Run(ctx context.Context, code string) (*Result, error) {
	r.mu.Lock()
	ticket, lesson, active := r.ticket, r.lesson, r.active
	r.mu.Unlock()

	if lesson == nil {
		return nil, ErrNoLesson
	}
	if strings.TrimSpace(code) == "" {
		return nil, &api.ValidationError{Field: "code", Message: "is required"}
	}

	ctx, stop := bind(ctx, active)
	defer stop()

	cases := lesson.Exercise.TestCases
	res := &Result{Day: lesson.Day, Outcome: OutcomePassed}
	if len(cases) == 0 {
		res.Outcome = OutcomeNoTests
		cases = []curriculum.TestCase{{}}
	}

	for _, tc := range cases {
		out, err := r.exec.Execute(ctx, api.ExecRequest{Code: code, Day: lesson.Day, Inputs: tc.Inputs()})
		if r.stale(ticket) {
			return nil, ErrStale
		}

		cr := CaseResult{Case: tc}
		var execErr *api.ExecutionError
		switch {
		case errors.As(err, &execErr):
			cr.Error = execErr.Message
			cr.Output = execErr.Output
		case err != nil:
			return nil, err
		case out.Error != "":
			cr.Error = out.Error
			cr.Output = out.Output
		default:
			cr.Output = out.Output
			cr.Passed = res.Outcome != OutcomeNoTests && tc.Matches(out.Output)
		}
		res.Cases = append(res.Cases, cr)

		if cr.Error != "" {
			res.Outcome = OutcomeExecError
			return res, nil
		}
		if !cr.Passed && res.Outcome == OutcomePassed {
			res.Outcome = OutcomeFailed
		}
	}

	if res.Outcome != OutcomePassed {
		return res, nil
	}
	if r.stale(ticket) {
		return nil, ErrStale
	}
	state, err := r.progress.RecordCompletion(ctx, lesson.Day)
	if err != nil {
		res.CompletionErr = err
		return res, nil
	}
	res.Completed = true
	res.Progress = state
	return res, nil
}

// Close cancels in-flight work and forgets the open lesson.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.ticket++
	r.lesson = nil
	r.active, r.cancel = nil, nil
}

func (r *Runner) switchTo() (uint64, context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.ticket++
	r.lesson = nil
	r.active, r.cancel = context.WithCancel(context.Background())
	return r.ticket, r.active
}

func (r *Runner) stale(ticket uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticket != ticket
}

// bind returns a context cancelled when either ctx or the lesson's lifetime
// ends.
func bind(ctx, lifetime context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	if lifetime == nil {
		return ctx, cancel
	}
	unregister := context.AfterFunc(lifetime, cancel)
	return ctx, func() {
		unregister()
		cancel()
	}
}
