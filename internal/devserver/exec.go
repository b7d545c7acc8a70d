package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a program exceeds its time limit.
var ErrTimeout = errors.New("execution timed out")

// Execution is a finished program's captured streams.
type Execution struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs learner code with inputs fed to stdin one per line.
type Executor interface {
	Execute(ctx context.Context, code string, inputs []string) (Execution, error)
}

// PythonExecutor runs code with a local Python interpreter. It is not a
// sandbox; only run it on a machine you control.
type PythonExecutor struct {
	Python  string
	Timeout time.Duration
}

// Limit returns the configured time limit.
func (p PythonExecutor) Limit() time.Duration { return p.Timeout }

// Execute writes code to a temporary file and runs it, killing the process
// after Timeout.
func (p PythonExecutor) Execute(ctx context.Context, code string, inputs []string) (Execution, error) {
	f, err := os.CreateTemp("", "hackdojo-*.py")
	if err != nil {
		return Execution{}, fmt.Errorf("create script: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return Execution{}, fmt.Errorf("write script: %w", err)
	}
	if err := f.Close(); err != nil {
		return Execution{}, fmt.Errorf("write script: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.Python, f.Name())
	cmd.Stdin = strings.NewReader(stdin(inputs))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Execution{}, ErrTimeout
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Execution{}, fmt.Errorf("run %s: %w", p.Python, err)
		}
	}
	return Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}, nil
}

func stdin(inputs []string) string {
	if len(inputs) == 0 {
		return ""
	}
	return strings.Join(inputs, "\n") + "\n"
}
