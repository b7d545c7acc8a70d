package login

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/session"
)

type fakeAuth struct {
	email, password string
	role            api.Role
	registered      bool
	err             error
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (session.Landing, error) {
	f.email, f.password = email, password
	return session.LandingDashboard, f.err
}

func (f *fakeAuth) Register(_ context.Context, email, password string, role api.Role) (session.Landing, error) {
	f.email, f.password, f.role, f.registered = email, password, role, true
	return session.Destination(role), f.err
}

func typeText(s screen.Screen, text string) screen.Screen {
	for _, r := range text {
		s, _ = s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	return s
}

func press(s screen.Screen, code rune) (screen.Screen, tea.Cmd) {
	return s.Update(tea.KeyPressMsg{Code: code})
}

// drain runs cmd and feeds its message back, returning the follow-up message.
func drain(t *testing.T, s screen.Screen, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	_, next := s.Update(cmd())
	require.NotNil(t, next)
	return next()
}

func TestLoginSubmitsCredentials(t *testing.T) {
	auth := &fakeAuth{}
	var s screen.Screen = New(auth, "")
	s.Init()

	s = typeText(s, "kid@example.com")
	s, _ = press(s, tea.KeyTab)
	s = typeText(s, "Secret123")
	s, cmd := press(s, tea.KeyEnter)

	msg := drain(t, s, cmd)
	signed, ok := msg.(screen.SignedInMsg)
	require.True(t, ok, "expected SignedInMsg, got %T", msg)
	assert.Equal(t, session.LandingDashboard, signed.Landing)
	assert.Equal(t, "kid@example.com", auth.email)
	assert.Equal(t, "Secret123", auth.password)
	assert.False(t, auth.registered)
}

func TestPasswordIsMasked(t *testing.T) {
	var s screen.Screen = New(&fakeAuth{}, "")
	s.Init()
	s, _ = press(s, tea.KeyTab)
	s = typeText(s, "hunter22")
	assert.NotContains(t, s.View(80, 24), "hunter22")
}

func TestLoginShowsAuthError(t *testing.T) {
	auth := &fakeAuth{err: &api.AuthError{Status: 401, Message: "Invalid credentials"}}
	var s screen.Screen = New(auth, "")
	s.Init()
	s, cmd := press(s, tea.KeyEnter)
	require.NotNil(t, cmd)
	s, next := s.Update(cmd())
	assert.Nil(t, next)
	assert.Contains(t, s.View(100, 30), "Invalid email or password.")
}

func TestLoginShowsValidationError(t *testing.T) {
	auth := &fakeAuth{err: &api.ValidationError{Field: "password", Message: "is required"}}
	var s screen.Screen = New(auth, "")
	s.Init()
	s, cmd := press(s, tea.KeyEnter)
	s, _ = s.Update(cmd())
	assert.Contains(t, s.View(100, 30), "Password is required")
}

func TestRegisterWithParentRole(t *testing.T) {
	auth := &fakeAuth{}
	var s screen.Screen = New(auth, "")
	s.Init()

	s, _ = s.Update(tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl})
	assert.Equal(t, "Create account", s.Title())

	s = typeText(s, "pat@example.com")
	s, _ = press(s, tea.KeyTab)
	s = typeText(s, "Secret123")
	s, _ = press(s, tea.KeyTab)
	s, _ = press(s, tea.KeyRight)
	s, cmd := press(s, tea.KeyEnter)

	msg := drain(t, s, cmd)
	signed, ok := msg.(screen.SignedInMsg)
	require.True(t, ok)
	assert.True(t, auth.registered)
	assert.Equal(t, api.RoleParent, auth.role)
	assert.Equal(t, session.LandingParentDashboard, signed.Landing)
}

func TestKeysIgnoredWhileBusy(t *testing.T) {
	var s screen.Screen = New(&fakeAuth{}, "")
	s.Init()
	s, cmd := press(s, tea.KeyEnter)
	require.NotNil(t, cmd)
	_, again := press(s, tea.KeyEnter)
	assert.Nil(t, again)
	assert.Contains(t, s.View(100, 30), "Signing in...")
}

func TestNoticeShown(t *testing.T) {
	s := New(&fakeAuth{}, "Your session expired. Please sign in again.")
	assert.Contains(t, s.View(100, 30), "session expired")
}
