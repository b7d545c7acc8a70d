package dashboard

import (
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackdojo/hackdojo/internal/router"
	"github.com/hackdojo/hackdojo/internal/screen"
	"github.com/hackdojo/hackdojo/internal/screens/chat"
	"github.com/hackdojo/hackdojo/internal/screens/lesson"
	"github.com/hackdojo/hackdojo/internal/screens/screentest"
)

func loaded(t *testing.T) *DashboardScreen {
	t.Helper()
	d := New(screentest.SignedIn(t, screentest.Student))
	d.Update(d.Init()())
	require.NotNil(t, d.Model())
	return d
}

func TestLoadShowsProgress(t *testing.T) {
	d := loaded(t)

	view := d.View(120, 40)
	assert.Contains(t, view, "Welcome back, Sam!")
	assert.Contains(t, view, "White Belt")
	assert.Contains(t, view, "Hello, Python")
	assert.Empty(t, d.errMsg)
}

func TestLockedDaysAreSkipped(t *testing.T) {
	d := loaded(t)
	require.Equal(t, 1, d.selectedDay())

	d.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 1, d.selectedDay(), "day 2 is locked for a fresh learner")
	assert.True(t, d.menu.Items[1].Disabled)
}

func TestEnterOpensLesson(t *testing.T) {
	d := loaded(t)

	_, cmd := d.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	push, ok := cmd().(router.PushScreenMsg)
	require.True(t, ok)
	_, isLesson := push.Screen.(*lesson.LessonScreen)
	assert.True(t, isLesson)
}

func TestSenseiKeyOpensChat(t *testing.T) {
	d := loaded(t)

	_, cmd := d.Update(tea.KeyPressMsg{Code: 's', Text: "s"})
	require.NotNil(t, cmd)
	push, ok := cmd().(router.PushScreenMsg)
	require.True(t, ok)
	_, isChat := push.Screen.(*chat.ChatScreen)
	assert.True(t, isChat)
}

func TestSignOutKey(t *testing.T) {
	d := loaded(t)

	_, cmd := d.Update(tea.KeyPressMsg{Code: 'x', Text: "x"})
	require.NotNil(t, cmd)
	_, ok := cmd().(screen.SignOutMsg)
	assert.True(t, ok)
}

func TestCompletionUnlocksNextDay(t *testing.T) {
	d := loaded(t)
	_, err := d.Model().RecordCompletion(t.Context(), 1)
	require.NoError(t, err)

	d.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 2, d.selectedDay())
}

func TestRefresh(t *testing.T) {
	d := loaded(t)
	_, cmd := d.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	require.NotNil(t, cmd)
	d.Update(cmd())
	assert.False(t, d.loading)
	assert.Empty(t, d.errMsg)
}
