package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hackdojo/hackdojo/internal/api"
	"github.com/hackdojo/hackdojo/internal/sensei"
)

var senseiCmd = &cobra.Command{
	Use:   "sensei",
	Short: "Ask Sensei for help and review past conversations",
}

var senseiAskCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask Sensei a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetInt("day")
		codePath, _ := cmd.Flags().GetString("code")

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

		var sc api.SenseiContext
		if st, ok := model.State(); ok {
			sc.CurrentDay = st.CurrentDay()
			sc.CompletedDays = st.CompletedDays()
		}
		scope := sensei.SessionScope
		if day > 0 {
			scope = sensei.LessonScope(day)
			l, err := e.client.Lesson(ctx, day)
			if err != nil {
				return describeErr(fmt.Sprintf("load day %d", day), err)
			}
			sc.Day = l.Day
			sc.LessonTitle = l.Title
			sc.Exercise = l.Exercise.Description
		}
		if codePath != "" {
			code, err := readSource(cmd, codePath)
			if err != nil {
				return err
			}
			sc.Code = code
		}

		chat, err := sensei.NewChat(ctx, scope, e.assistant(ctx), sensei.WithTranscript(e.store.TranscriptRepo()))
		if err != nil {
			return err
		}
		msg, err := chat.Ask(ctx, strings.Join(args, " "), sc)
		if err != nil && msg.Text == "" {
			return describeErr("ask sensei", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg.Text)
		if err != nil {
			return fmt.Errorf("sensei could not answer: %w", err)
		}
		return nil
	},
}

var senseiHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Print a Sensei conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetInt("day")
		reset, _ := cmd.Flags().GetBool("clear")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		scope := sensei.SessionScope
		if day > 0 {
			scope = sensei.LessonScope(day)
		}
		ctx := ctxOf(cmd)
		chat, err := sensei.NewChat(ctx, scope, e.assistant(ctx), sensei.WithTranscript(e.store.TranscriptRepo()))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if reset {
			if err := chat.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared the %s conversation.\n", scope)
			return nil
		}

		for _, m := range chat.Messages() {
			who := "Sensei"
			if m.Sender == sensei.SenderUser {
				who = "You"
			}
			fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Local().Format("Jan 2 15:04"), who, m.Text)
		}
		return nil
	},
}

func init() {
	senseiAskCmd.Flags().Int("day", 0, "Ask about this lesson day")
	senseiAskCmd.Flags().String("code", "", "Attach code from a file (- for stdin)")
	senseiHistoryCmd.Flags().Int("day", 0, "Show the conversation for this lesson day")
	senseiHistoryCmd.Flags().Bool("clear", false, "Clear the conversation back to the greeting")

	senseiCmd.AddCommand(senseiAskCmd)
	senseiCmd.AddCommand(senseiHistoryCmd)
}
