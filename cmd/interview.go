package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/mentorloop/internal/interview"
	"github.com/abhisek/mentorloop/internal/ui/components"
	"github.com/abhisek/mentorloop/internal/ui/theme"
	"github.com/spf13/cobra"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a mock technical interview",
}

var interviewImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a YAML question bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		qs, err := interview.LoadQuestions(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		n, err := a.Interview.Import(cmd.Context(), qs)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions\n", n)
		return nil
	},
}

var interviewStartCmd = &cobra.Command{
	Use:   "start <subject>",
	Short: "Start a session and show the first question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		res, err := a.Interview.Start(cmd.Context(), user, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Label.Render("Session")+theme.Body.Render(res.SessionID))
		fmt.Fprintln(out, components.Question(res.FirstQuestion, res.TotalQuestions))
		return nil
	},
}

var interviewAnswerCmd = &cobra.Command{
	Use:   "answer <session-id> <answer...>",
	Short: "Answer the current question",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		res, err := a.Interview.Submit(cmd.Context(), user, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Rejected {
			fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf(
				"Answers shorter than %d characters are not recorded. Try again.", interview.MinAnswerChars)))
		}
		fmt.Fprintln(out, components.Evaluation(res.Evaluation))
		fmt.Fprintln(out, components.Bar("Progress",
			float64(res.Progress.Answered)/float64(max(res.Progress.Total, 1)), true, 60))
		fmt.Fprintln(out, components.Question(res.NextQuestion, res.Progress.Total))
		return nil
	},
}

var interviewFinalizeCmd = &cobra.Command{
	Use:   "finalize <session-id>",
	Short: "Finish the session and show the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showReport(cmd, args[0], true)
	},
}

var interviewReportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Show the report of a finalized session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showReport(cmd, args[0], false)
	},
}

func showReport(cmd *cobra.Command, sessionID string, finalize bool) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	var r *interview.Report
	if finalize {
		r, err = a.Interview.Finalize(cmd.Context(), user, sessionID)
	} else {
		r, err = a.Interview.Report(cmd.Context(), user, sessionID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), components.Report(r))
	return nil
}

func init() {
	interviewCmd.PersistentFlags().StringP("user", "u", "", "Candidate id (or MENTORLOOP_USER)")

	interviewCmd.AddCommand(interviewImportCmd)
	interviewCmd.AddCommand(interviewStartCmd)
	interviewCmd.AddCommand(interviewAnswerCmd)
	interviewCmd.AddCommand(interviewFinalizeCmd)
	interviewCmd.AddCommand(interviewReportCmd)
}
