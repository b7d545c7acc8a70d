// Package screentest wires screens to an in-process development server for
// tests.
package screentest

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/devserver"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/sensei"
	"github.com/hackdojo/hackdojo/internal/session"
)

// Demo account emails seeded by the development server.
const (
	Student = "student@hackdojo.dev"
	Parent  = "parent@hackdojo.dev"
	Admin   = "admin@hackdojo.dev"
)

// executor prints Hello, World! when the code asks for it, raises on
// "raise" and echoes stdin otherwise.
type executor struct{}

func (executor) Execute(_ context.Context, code string, inputs []string) (devserver.Execution, error) {
	switch {
	case strings.Contains(code, "raise"):
		return devserver.Execution{Stderr: "Traceback (most recent call last):\nValueError\n", ExitCode: 1}, nil
	case strings.Contains(code, "Hello, World!"):
		return devserver.Execution{Stdout: "Hello, World!\n"}, nil
	}
	return devserver.Execution{Stdout: strings.Join(inputs, "\n") + "\n"}, nil
}

// Server starts a development server with the demo accounts and returns an
// unauthenticated client for it.
func Server(t *testing.T) *api.Client {
	t.Helper()
	srv, err := devserver.New(devserver.Config{
		Secret:   []byte("screen-test-secret"),
		TokenTTL: time.Hour,
		Executor: executor{},
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		HashCost: bcrypt.MinCost,
		SeedDemo: true,
	})
	if err != nil {
		t.Fatalf("devserver: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return api.New(ts.URL + "/api")
}

// Deps returns screen dependencies against a fresh server with no one
// signed in.
func Deps(t *testing.T) screen.Deps {
	t.Helper()
	client := Server(t)
	mgr := session.NewManager(client, nil)
	client.SetCredentials(mgr)
	return screen.Deps{
		Session:    mgr,
		Client:     client,
		Assistant:  sensei.Remote(client),
		SenseiRate: 60,
	}
}

// SignedIn returns screen dependencies with email signed in.
func SignedIn(t *testing.T, email string) screen.Deps {
	t.Helper()
	deps := Deps(t)
	if _, err := deps.Session.Login(context.Background(), email, devserver.DemoPassword); err != nil {
		t.Fatalf("sign in %s: %v", email, err)
	}
	return deps
}
