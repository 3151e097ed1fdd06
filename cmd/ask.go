package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/mentorloop/internal/chat"
	"github.com/abhisek/mentorloop/internal/generation"
	"github.com/abhisek/mentorloop/internal/ui/theme"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the tutor one question and stream the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		session, _ := cmd.Flags().GetString("session")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		out := cmd.OutOrStdout()
		reply, err := a.Chat.Serve(cmd.Context(), chat.Request{
			UserID:    user,
			SessionID: session,
			Messages:  []chat.Message{{Role: chat.RoleUser, Content: strings.Join(args, " ")}},
		}, generation.WriterSink{W: out})
		if err != nil {
			return err
		}

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			fmt.Fprintln(cmd.ErrOrStderr(), theme.Hint.Render(fmt.Sprintf(
				"session %s · intent %s · attempts %d", reply.SessionID, reply.Intent, reply.Outcome.Attempts)))
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringP("user", "u", "", "Learner id (or MENTORLOOP_USER)")
	askCmd.Flags().String("session", "", "Conversation id to continue")
	askCmd.Flags().BoolP("verbose", "v", false, "Print session, intent and attempt count to stderr")
}
