package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackdojo/hackdojo/internal/devserver"
	"github.com/hackdojo/hackdojo/internal/screens/screentest"
)

// cli points the commands at a fresh development server and device store.
type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	client := screentest.Server(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HACKDOJO_API_BASE_URL", client.BaseURL())
	t.Setenv("HACKDOJO_PASSWORD", "")
	t.Setenv("HACKDOJO_DB", "")
	return &cli{t: t, db: filepath.Join(dir, "hackdojo.db")}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--db", c.db))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("12")
	require.NoError(t, err)
	assert.Equal(t, 12, day)

	for _, bad := range []string{"0", "-3", "seven", ""} {
		_, err := parseDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadPassword(t *testing.T) {
	newCmd := func(stdin string) *cobra.Command {
		c := &cobra.Command{}
		c.Flags().String("password", "", "")
		c.SetIn(strings.NewReader(stdin))
		c.SetErr(&bytes.Buffer{})
		return c
	}

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("HACKDOJO_PASSWORD", "from-env")
		c := newCmd("from-stdin\n")
		require.NoError(t, c.Flags().Set("password", "from-flag"))
		p, err := readPassword(c)
		require.NoError(t, err)
		assert.Equal(t, "from-flag", p)
	})

	t.Run("env before stdin", func(t *testing.T) {
		t.Setenv("HACKDOJO_PASSWORD", "from-env")
		p, err := readPassword(newCmd("from-stdin\n"))
		require.NoError(t, err)
		assert.Equal(t, "from-env", p)
	})

	t.Run("stdin line", func(t *testing.T) {
		t.Setenv("HACKDOJO_PASSWORD", "")
		p, err := readPassword(newCmd("from-stdin\r\nignored\n"))
		require.NoError(t, err)
		assert.Equal(t, "from-stdin", p)
	})
}

func TestStudentFlow(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "whoami")
	assert.ErrorIs(t, err, errNotSignedIn)

	out, err := c.run(devserver.DemoPassword+"\n", "login", screentest.Student)
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Sam (student)")

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, screentest.Student)

	out, err = c.run("", "belts")
	require.NoError(t, err)
	assert.Contains(t, out, "Day 1")
	assert.Contains(t, out, "White Belt")

	_, err = c.run("", "lesson", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	out, err = c.run("", "lesson", "1", "--hint")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, Python")
	assert.Contains(t, out, "Hint:")

	out, err = c.run("print(\"oops\")\n", "run", "1", "-")
	assert.ErrorIs(t, err, errTestsFailed)
	assert.Contains(t, out, "Not quite")

	solution := filepath.Join(t.TempDir(), "day1.py")
	require.NoError(t, os.WriteFile(solution, []byte("print(\"Hello, World!\")\n"), 0o644))
	out, err = c.run("", "run", "1", solution)
	require.NoError(t, err)
	assert.Contains(t, out, "All tests passed!")
	assert.Contains(t, out, "Day 2 is unlocked.")

	out, err = c.run("", "sensei", "ask", "--day", "1", "how", "do", "I", "print?")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out, err = c.run("", "sensei", "history", "--day", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "You: how do I print?")

	out, err = c.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	_, err = c.run("", "whoami")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("wrong-password\n", "login", screentest.Student)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")
}

func TestParentAndAdminCommands(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(devserver.DemoPassword+"\n", "login", screentest.Parent)
	require.NoError(t, err)

	out, err := c.run("", "parent", "children")
	require.NoError(t, err)
	assert.Contains(t, out, "Sam")

	out, err = c.run("", "parent", "add-child", "Kai", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Kai")

	_, err = c.run("", "admin", "users")
	require.Error(t, err, "parents cannot list users")

	_, err = c.run(devserver.DemoPassword+"\n", "login", screentest.Admin)
	require.NoError(t, err)

	out, err = c.run("", "admin", "analytics")
	require.NoError(t, err)
	assert.Contains(t, out, "Students:")

	out, err = c.run("", "admin", "users")
	require.NoError(t, err)
	assert.Contains(t, out, screentest.Student)
	assert.Contains(t, out, "Kai")

	_, err = c.run("", "admin", "role", "1", "wizard")
	require.Error(t, err)
}
