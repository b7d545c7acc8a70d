package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hackdojo/hackdojo/internal/api"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and remember the session on this device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.session.User() != nil {
			e.session.Logout(ctxOf(cmd))
		}
		landing, err := e.session.Login(ctxOf(cmd), args[0], password)
		if err != nil {
			return describeErr("sign in", err)
		}
		u := e.session.User()
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s). Head to the %s.\n", displayName(u), u.Role, landing)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create a student or parent account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.session.User() != nil {
			e.session.Logout(ctxOf(cmd))
		}
		if _, err := e.session.Register(ctxOf(cmd), args[0], password, api.Role(role)); err != nil {
			return describeErr("register", err)
		}
		u := e.session.User()
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome to the dojo, %s! Signed in as %s.\n", displayName(u), u.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session saved on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		e.session.Logout(ctxOf(cmd))
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		u, err := e.requireSession()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:   %s\n", displayName(u))
		fmt.Fprintf(out, "Email:  %s\n", u.Email)
		fmt.Fprintf(out, "Role:   %s\n", u.Role)
		fmt.Fprintf(out, "Server: %s\n", e.client.BaseURL())
		return nil
	},
}

// readPassword takes the password from --password, HACKDOJO_PASSWORD or
// the first line of stdin, in that order.
func readPassword(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	if p := os.Getenv("HACKDOJO_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func displayName(u *api.User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// describeErr turns a gateway error into a one-line message for the terminal.
func describeErr(action string, err error) error {
	switch api.Kind(err) {
	case api.KindAuth:
		if action == "sign in" {
			return fmt.Errorf("%s: invalid email or password", action)
		}
		return fmt.Errorf("%s: not allowed (%v); you may need to sign in again", action, err)
	case api.KindNetwork:
		return fmt.Errorf("%s: cannot reach the HackDojo server: %w", action, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func init() {
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted from stdin when omitted)")
	registerCmd.Flags().StringP("password", "p", "", "Password (prompted from stdin when omitted)")
	registerCmd.Flags().String("role", string(api.RoleStudent), "Account type: student or parent")
}
