package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/config"
	"github.com/hackdojo/hackdojo/internal/llm"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/sensei"
	"github.com/hackdojo/hackdojo/internal/session"
	"github.com/hackdojo/hackdojo/internal/store"
)

// errNotSignedIn is returned by commands that need a session when none
// could be restored.
var errNotSignedIn = errors.New("not signed in; run `hackdojo login` first")

// env is what every client command is built from.
type env struct {
	cfg     *config.Config
	store   *store.Store
	client  *api.Client
	session *session.Manager
}

// openEnv loads config, opens the device store and wires the client to a
// session manager whose credential lives in the store. The saved session
// is restored; a missing or rejected one leaves the manager signed out.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	client := api.New(cfg.API.BaseURL,
		api.WithTimeouts(cfg.API.Timeout, cfg.API.SenseiTimeout, cfg.API.RunTimeout))
	mgr := session.NewManager(client, st.CredentialRepo())
	client.SetCredentials(mgr)

	if _, err := mgr.Restore(ctxOf(cmd)); err != nil && !api.IsAuth(err) {
		fmt.Fprintf(os.Stderr, "warning: could not restore session: %v\n", err)
	}

	return &env{cfg: cfg, store: st, client: client, session: mgr}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
}

// requireSession fails unless a user is signed in.
func (e *env) requireSession() (*api.User, error) {
	u := e.session.User()
	if u == nil || e.session.Phase() != session.PhaseAuthenticated {
		return nil, errNotSignedIn
	}
	return u, nil
}

// assistant returns the configured Sensei: the backend, or a local LLM when
// sensei.mode is local and a provider is configured.
func (e *env) assistant(ctx context.Context) sensei.Assistant {
	if e.cfg.Sensei.Mode != config.SenseiLocal {
		return sensei.Remote(e.client)
	}
	llmCfg, ok := llm.Resolve()
	if !ok {
		fmt.Fprintln(os.Stderr, "warning: sensei.mode is local but no LLM provider is configured; asking the server instead")
		return sensei.Remote(e.client)
	}
	provider, err := llm.NewProvider(ctx, llmCfg, e.store.EventRepo())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM provider unavailable (%v); asking the server instead\n", err)
		return sensei.Remote(e.client)
	}
	return sensei.Local(provider)
}

// screenDeps builds the TUI's dependencies.
func (e *env) screenDeps(ctx context.Context) screen.Deps {
	return screen.Deps{
		Session:     e.session,
		Client:      e.client,
		Snapshots:   e.store.SnapshotRepo(),
		Transcripts: e.store.TranscriptRepo(),
		Assistant:   e.assistant(ctx),
		SenseiRate:  e.cfg.Sensei.RatePerMinute,
	}
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
