package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/progress"
)

var parentCmd = &cobra.Command{
	Use:   "parent",
	Short: "Follow your children's progress",
}

var parentChildrenCmd = &cobra.Command{
	Use:   "children",
	Short: "List linked children",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if _, err := e.requireSession(); err != nil {
			return err
		}

		children, err := e.client.Children(ctxOf(cmd))
		if err != nil {
			return describeErr("list children", err)
		}
		out := cmd.OutOrStdout()
		if len(children) == 0 {
			fmt.Fprintln(out, "No children linked yet. Add one with `hackdojo parent add-child`.")
			return nil
		}
		fmt.Fprintf(out, "%-6s  %-20s  %3s  %4s  %-14s  %s\n", "ID", "Name", "Age", "Day", "Belt", "Completed")
		for _, c := range children {
			fmt.Fprintf(out, "%-6s  %-20s  %3d  %4d  %-14s  %d\n",
				c.ID, c.Name, c.Age, c.Progress.CurrentDay, c.Progress.CurrentBelt, len(c.Progress.CompletedDays))
		}
		return nil
	},
}

var parentChildCmd = &cobra.Command{
	Use:   "child <id>",
	Short: "Show one child's progress and recent activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if _, err := e.requireSession(); err != nil {
			return err
		}

		ctx := ctxOf(cmd)
		catalog, err := e.client.Curriculum(ctx)
		if err != nil {
			return describeErr("load curriculum", err)
		}
		rec, err := e.client.ChildProgress(ctx, args[0])
		if err != nil {
			return describeErr("load child progress", err)
		}
		activity, err := e.client.ChildActivity(ctx, args[0])
		if err != nil {
			return describeErr("load child activity", err)
		}

		st := progress.FromRecord(*rec, catalog)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Day %d of %d · %s · %d days completed\n\n",
			st.CurrentDay(), catalog.TotalDays(), st.CurrentBelt(), st.CompletedCount())
		for _, b := range catalog.Belts() {
			fmt.Fprintf(out, "%-14s %3.0f%%\n", b.Name, st.ProgressForBelt(b))
		}

		fmt.Fprintln(out, "\nRecent activity")
		if len(activity) == 0 {
			fmt.Fprintln(out, "  none yet")
		}
		for _, a := range activity {
			mark := "✓"
			if !a.Success {
				mark = "✗"
			}
			fmt.Fprintf(out, "  %s %-20s day %-3d %s\n", mark, a.Lesson, a.Day, a.Timestamp)
		}
		return nil
	},
}

var parentAddChildCmd = &cobra.Command{
	Use:   "add-child <name> <age>",
	Short: "Create a child account linked to you",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		age, err := strconv.Atoi(args[1])
		if err != nil || age < 1 {
			return fmt.Errorf("invalid age %q", args[1])
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if _, err := e.requireSession(); err != nil {
			return err
		}

		child, err := e.client.AddChild(ctxOf(cmd), args[0], age)
		if err != nil {
			return describeErr("add child", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (id %s).\n", child.Name, child.ID)
		return nil
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage accounts and view platform analytics",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List every account",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if _, err := e.requireSession(); err != nil {
			return err
		}

		users, err := e.client.Users(ctxOf(cmd))
		if err != nil {
			return describeErr("list users", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-6s  %-30s  %-20s  %s\n", "ID", "Email", "Name", "Role")
		for _, u := range users {
			fmt.Fprintf(out, "%-6s  %-30s  %-20s  %s\n", u.ID, u.Email, u.DisplayName, u.Role)
		}
		return nil
	},
}

var adminRoleCmd = &cobra.Command{
	Use:   "role <user-id> <student|parent|admin>",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := api.Role(args[1])
		if !role.Valid() {
			return fmt.Errorf("invalid role %q: must be student, parent or admin", args[1])
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if _, err := e.requireSession(); err != nil {
			return err
		}

		if err := e.client.SetUserRole(ctxOf(cmd), args[0], role); err != nil {
			return describeErr("set role", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s is now %s.\n", args[0], role)
		return nil
	},
}

var adminAnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show student totals and belt distribution",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if _, err := e.requireSession(); err != nil {
			return err
		}

		a, err := e.client.Analytics(ctxOf(cmd))
		if err != nil {
			return describeErr("load analytics", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Students: %d\n\n", a.TotalStudents)
		for _, belt := range slices.Sorted(maps.Keys(a.BeltDistribution)) {
			fmt.Fprintf(out, "%-14s %d\n", belt, a.BeltDistribution[belt])
		}
		return nil
	},
}

func init() {
	parentCmd.AddCommand(parentChildrenCmd)
	parentCmd.AddCommand(parentChildCmd)
	parentCmd.AddCommand(parentAddChildCmd)

	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminRoleCmd)
	adminCmd.AddCommand(adminAnalyticsCmd)
}
