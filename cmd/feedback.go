package cmd

import (
	"fmt"

	"github.com/abhisek/mentorloop/internal/observer"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Rate a tutor answer with thumbs up or down",
	Long: `Record explicit feedback on an answer. A thumbs down is analyzed in the
background into a structured improvement note.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		ratingFlag, _ := cmd.Flags().GetString("rating")
		var rating int
		switch ratingFlag {
		case "up", "+1", "1":
			rating = observer.ThumbsUp
		case "down", "-1":
			rating = observer.ThumbsDown
		default:
			return fmt.Errorf("--rating must be up or down, got %q", ratingFlag)
		}

		fr := &store.FeedbackRating{UserID: user, Rating: rating}
		fr.SessionID, _ = cmd.Flags().GetString("session")
		fr.Comment, _ = cmd.Flags().GetString("comment")
		fr.UserMessage, _ = cmd.Flags().GetString("message")
		fr.AIResponse, _ = cmd.Flags().GetString("response")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if err := a.Feedback.Record(cmd.Context(), fr); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Thanks, feedback recorded.")
		return nil
	},
}

func init() {
	f := feedbackCmd.Flags()
	f.StringP("user", "u", "", "Learner id (or MENTORLOOP_USER)")
	f.StringP("rating", "r", "", "up or down")
	f.String("session", "", "Conversation id the answer belongs to")
	f.String("comment", "", "What was wrong or helpful")
	f.String("message", "", "The question that was asked")
	f.String("response", "", "The answer being rated")
	_ = feedbackCmd.MarkFlagRequired("rating")
}
