package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hackdojo/hackdojo/internal/progress"
	"github.com/hackdojo/hackdojo/internal/runner"
)

// errTestsFailed makes `hackdojo run` exit non-zero when the solution does
// not pass.
var errTestsFailed = errors.New("not all tests passed")

var beltsCmd = &cobra.Command{
	Use:   "belts",
	Short: "Show belts, days and your progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		model, err := e.progressModel(ctxOf(cmd))
		if err != nil {
			return err
		}
		st, _ := model.State()
		out := cmd.OutOrStdout()
		if model.HintOnly() {
			fmt.Fprintln(out, "(offline: showing progress saved on this device)")
		}
		fmt.Fprintf(out, "Day %d · %s · %d of %d days completed\n\n",
			st.CurrentDay(), st.CurrentBelt(), st.CompletedCount(), model.Catalog().TotalDays())

		verbose, _ := cmd.Flags().GetBool("days")
		for _, b := range model.Catalog().Belts() {
			pct, _ := model.ProgressForBelt(b.Name)
			fmt.Fprintf(out, "%-14s days %2d-%-2d  %3.0f%%\n", b.Name, b.StartDay, b.EndDay, pct)
			if !verbose {
				continue
			}
			for _, ds := range model.Days(b) {
				var mark string
				switch {
				case ds.Completed:
					mark = "✓ "
				case ds.Unlocked:
					mark = "▸ "
				default:
					mark = "· "
				}
				fmt.Fprintf(out, "    %s Day %-3d %s\n", mark, ds.Day, ds.Title)
			}
		}
		return nil
	},
}

var lessonCmd = &cobra.Command{
	Use:   "lesson <day>",
	Short: "Print a lesson and its exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(args[0])
		if err != nil {
			return err
		}
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		model, err := e.progressModel(ctxOf(cmd))
		if err != nil {
			return err
		}
		r := runner.New(e.client, e.client, model)
		defer r.Close()
		l, err := r.Open(ctxOf(cmd), day)
		if err != nil {
			return openErr(day, err)
		}

		showHint, _ := cmd.Flags().GetBool("hint")
		out := cmd.OutOrStdout()
		sep := strings.Repeat("─", 60)
		fmt.Fprintf(out, "Day %d: %s\n%s\n%s\n\n", l.Day, l.Title, sep, strings.TrimSpace(l.Content))
		fmt.Fprintf(out, "EXERCISE\n%s\n%s\n", sep, strings.TrimSpace(l.Exercise.Description))
		if showHint && l.Exercise.Hint != "" {
			fmt.Fprintf(out, "\nHint: %s\n", l.Exercise.Hint)
		}
		if l.Exercise.StarterCode != "" {
			fmt.Fprintf(out, "\nSTARTER CODE\n%s\n%s", sep, l.Exercise.StarterCode)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <day> <file|->",
	Short: "Run a solution against a lesson's tests",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(args[0])
		if err != nil {
			return err
		}
		code, err := readSource(cmd, args[1])
		if err != nil {
			return err
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := ctxOf(cmd)
		model, err := e.progressModel(ctx)
		if err != nil {
			return err
		}
		r := runner.New(e.client, e.client, model)
		defer r.Close()
		if _, err := r.Open(ctx, day); err != nil {
			return openErr(day, err)
		}
		res, err := r.Run(ctx, code)
		if err != nil {
			return describeErr("run", err)
		}

		printResult(cmd.OutOrStdout(), res, model.Catalog().TotalDays())
		if res.Outcome == runner.OutcomeFailed || res.Outcome == runner.OutcomeExecError {
			return errTestsFailed
		}
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <day>",
	Short: "Mark a day completed without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(args[0])
		if err != nil {
			return err
		}
		if override, _ := cmd.Flags().GetBool("override"); !override {
			return errors.New("completing a day without passing its tests needs --override")
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := ctxOf(cmd)
		model, err := e.progressModel(ctx)
		if err != nil {
			return err
		}
		st, err := model.MarkComplete(ctx, day)
		if err != nil {
			return describeErr("complete", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Day %d marked complete. Current day: %d (%s).\n", day, st.CurrentDay(), st.CurrentBelt())
		return nil
	},
}

// progressModel loads the signed-in learner's progress, seeded from the
// device store when the server is unreachable.
func (e *env) progressModel(ctx context.Context) (*progress.Model, error) {
	u, err := e.requireSession()
	if err != nil {
		return nil, err
	}
	catalog, err := e.client.Curriculum(ctx)
	if err != nil {
		return nil, describeErr("load curriculum", err)
	}
	model := progress.NewModel(e.client, catalog, progress.WithSnapshots(e.store.SnapshotRepo(), u.ID))
	seeded := model.Seed(ctx)
	if _, err := model.Load(ctx); err != nil {
		if !seeded {
			return nil, describeErr("load progress", err)
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return model, nil
}

func printResult(out io.Writer, res *runner.Result, totalDays int) {
	for i, c := range res.Cases {
		if res.Outcome == runner.OutcomeNoTests {
			fmt.Fprint(out, c.Output)
			continue
		}
		mark := "✓"
		if !c.Passed {
			mark = "✗"
		}
		fmt.Fprintf(out, "%s test %d\n", mark, i+1)
		if !c.Passed {
			fmt.Fprintf(out, "    expected: %q\n    got:      %q\n", strings.TrimSpace(c.Case.Expected), strings.TrimSpace(c.Output))
		}
		if c.Error != "" {
			fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(strings.TrimSpace(c.Error), "\n", "\n    "))
		}
	}

	switch res.Outcome {
	case runner.OutcomePassed:
		fmt.Fprintln(out, "All tests passed!")
		switch {
		case res.Completed && res.Day < totalDays && res.Progress.IsUnlocked(res.Day+1):
			fmt.Fprintf(out, "Day %d complete. Day %d is unlocked.\n", res.Day, res.Day+1)
		case res.Completed:
			fmt.Fprintf(out, "Day %d complete.\n", res.Day)
		case res.CompletionErr != nil:
			fmt.Fprintf(out, "warning: could not save your progress: %v\n", res.CompletionErr)
		}
	case runner.OutcomeFailed:
		fmt.Fprintln(out, "Not quite. Compare your output with the expected output.")
	case runner.OutcomeExecError:
		fmt.Fprintln(out, "Your program hit an error.")
	}
}

func openErr(day int, err error) error {
	if errors.Is(err, runner.ErrLocked) {
		return fmt.Errorf("day %d is locked; finish the days before it first", day)
	}
	return describeErr(fmt.Sprintf("open day %d", day), err)
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 {
		return 0, fmt.Errorf("invalid day %q: must be a positive number", s)
	}
	return day, nil
}

// readSource reads code from path, or from stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read solution: %w", err)
	}
	return string(data), nil
}

func init() {
	beltsCmd.Flags().Bool("days", false, "List every day with its status")
	lessonCmd.Flags().Bool("hint", false, "Show the exercise hint")
	completeCmd.Flags().Bool("override", false, "Confirm completing the day without a passing run")
}
