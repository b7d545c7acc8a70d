// Package session owns the signed-in identity: the bearer token, the user it
// belongs to, and the Unauthenticated -> Authenticating -> Authenticated
// lifecycle every other component is gated on.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/store"
)

// Phase is the session lifecycle state.
type Phase int

const (
	PhaseUnauthenticated Phase = iota // No credential in use
	PhaseAuthenticating               // Login, registration or restore in flight
	PhaseAuthenticated                // Token and user are set
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	// ErrAuthenticating is returned when a transition is requested while
	// another one is still pending.
	ErrAuthenticating = errors.New("session: authentication already in progress")

	// ErrSuperseded is returned by a sign-in whose result arrived after a
	// logout made it irrelevant.
	ErrSuperseded = errors.New("session: sign-in superseded by logout")
)

// Gateway is the subset of the backend the session needs.
type Gateway interface {
	Login(ctx context.Context, email, password string) (*api.AuthResult, error)
	Register(ctx context.Context, email, password string, role api.Role) (*api.AuthResult, error)
	Profile(ctx context.Context, token string) (*api.User, error)
}

// Change describes a phase transition. Cause is set when the server
// rejected the token.
type Change struct {
	Phase Phase
	Cause error
}

// Manager is the single owner of session state. It implements
// api.Credentials so every authenticated call reads its token from here and
// reports rejections back.
type Manager struct {
	gw    Gateway
	creds store.CredentialRepo
	now   func() time.Time

	mu        sync.Mutex
	phase     Phase
	token     string
	user      *api.User
	epoch     uint64
	listeners []func(Change)
}

// NewManager creates a Manager. creds may be nil, in which case nothing is
// persisted across runs.
func NewManager(gw Gateway, creds store.CredentialRepo) *Manager {
	return &Manager{gw: gw, creds: creds, now: time.Now}
}

// OnChange registers fn to be called after every phase transition.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// User returns a copy of the signed-in user, or nil unless Authenticated.
func (m *Manager) User() *api.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Token returns the bearer token, or "" unless Authenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseAuthenticated {
		return ""
	}
	return m.token
}

// Invalidate signs out if token is still the active credential. Rejections
// of a token that was already replaced are ignored.
func (m *Manager) Invalidate(token string, cause error) {
	m.mu.Lock()
	if m.phase != PhaseAuthenticated || m.token != token {
		m.mu.Unlock()
		return
	}
	m.resetLocked()
	m.mu.Unlock()

	m.clearCredential(context.Background())
	m.notify(Change{Phase: PhaseUnauthenticated, Cause: cause})
}

// Login signs in with email and password and returns where the user lands.
func (m *Manager) Login(ctx context.Context, email, password string) (Landing, error) {
	if err := validateLogin(email, password); err != nil {
		return "", err
	}
	return m.signIn(ctx, func(ctx context.Context) (*api.AuthResult, error) {
		return m.gw.Login(ctx, email, password)
	})
}

// Register creates a student or parent account and signs it in.
func (m *Manager) Register(ctx context.Context, email, password string, role api.Role) (Landing, error) {
	if err := validateRegistration(email, password, role); err != nil {
		return "", err
	}
	return m.signIn(ctx, func(ctx context.Context) (*api.AuthResult, error) {
		return m.gw.Register(ctx, email, password, role)
	})
}

func (m *Manager) signIn(ctx context.Context, authenticate func(context.Context) (*api.AuthResult, error)) (Landing, error) {
	epoch, err := m.begin()
	if err != nil {
		return "", err
	}

	res, err := authenticate(ctx)
	var user *api.User
	if err == nil {
		user = res.User
		if user == nil {
			user, err = m.gw.Profile(ctx, res.Token)
		}
	}
	if err != nil {
		m.fail(epoch)
		return "", err
	}

	if !m.commit(epoch, res.Token, user) {
		return "", ErrSuperseded
	}
	m.saveCredential(ctx, res.Token, user)
	m.notify(Change{Phase: PhaseAuthenticated})
	return Destination(user.Role), nil
}

// Restore re-establishes the session from the stored credential without
// navigating anywhere. It reports whether the session is now Authenticated.
// A rejected or expired credential is discarded; a network failure keeps it
// for the next attempt and is returned.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	switch m.Phase() {
	case PhaseAuthenticated:
		return true, nil
	case PhaseAuthenticating:
		return false, ErrAuthenticating
	}
	if m.creds == nil {
		return false, nil
	}

	c, err := m.creds.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load credential: %w", err)
	}
	if c == nil || c.Token == "" {
		return false, nil
	}
	if tokenExpired(c.Token, m.now()) {
		m.clearCredential(ctx)
		return false, nil
	}

	epoch, err := m.begin()
	if err != nil {
		return false, err
	}

	user, err := m.gw.Profile(ctx, c.Token)
	if err != nil {
		m.fail(epoch)
		if api.IsAuth(err) {
			m.clearCredential(ctx)
			return false, nil
		}
		return false, err
	}

	if !m.commit(epoch, c.Token, user) {
		return false, ErrSuperseded
	}
	m.saveCredential(ctx, c.Token, user)
	m.notify(Change{Phase: PhaseAuthenticated})
	return true, nil
}

// Logout discards the credential and user. It always succeeds locally.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()

	m.clearCredential(ctx)
	m.notify(Change{Phase: PhaseUnauthenticated})
}

// begin enters Authenticating and returns the epoch the transition belongs to.
func (m *Manager) begin() (uint64, error) {
	m.mu.Lock()
	if m.phase == PhaseAuthenticating {
		m.mu.Unlock()
		return 0, ErrAuthenticating
	}
	m.epoch++
	epoch := m.epoch
	m.phase = PhaseAuthenticating
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	m.notify(Change{Phase: PhaseAuthenticating})
	return epoch, nil
}

// commit enters Authenticated unless a logout intervened since begin.
func (m *Manager) commit(epoch uint64, token string, user *api.User) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return false
	}
	u := *user
	m.phase = PhaseAuthenticated
	m.token = token
	m.user = &u
	return true
}

// fail returns to Unauthenticated unless a logout already did.
func (m *Manager) fail(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.resetLocked()
	m.mu.Unlock()
	m.notify(Change{Phase: PhaseUnauthenticated})
}

func (m *Manager) resetLocked() {
	m.epoch++
	m.phase = PhaseUnauthenticated
	m.token = ""
	m.user = nil
}

func (m *Manager) notify(c Change) {
	m.mu.Lock()
	listeners := make([]func(Change), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
}

func (m *Manager) saveCredential(ctx context.Context, token string, user *api.User) {
	if m.creds == nil {
		return
	}
	userJSON, err := json.Marshal(user)
	if err == nil {
		err = m.creds.Save(ctx, store.Credential{Token: token, User: userJSON, SavedAt: m.now()})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save credential: %v\n", err)
	}
}

func (m *Manager) clearCredential(ctx context.Context) {
	if m.creds == nil {
		return
	}
	if err := m.creds.Clear(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to clear credential: %v\n", err)
	}
}

// tokenExpired peeks at a JWT's exp claim without verifying the signature.
// Opaque or claim-less tokens are left for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}
