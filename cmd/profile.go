package cmd

import (
	"fmt"

	"github.com/abhisek/mentorloop/internal/chat"
	"github.com/abhisek/mentorloop/internal/ui/components"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or refresh a learner profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored learner profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := userFlag(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := s.ProfileRepo().Get(cmd.Context(), user)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Profile(p))
		return nil
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-infer the profile from the learner's recent conversations",
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

		turns, err := a.Store.TurnRepo().RecentByUser(cmd.Context(), user, a.Config.Chat.ProfileWindow)
		if err != nil {
			return err
		}
		if len(turns) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No conversations recorded for", user)
			return nil
		}
		p, err := a.Profiles.Update(cmd.Context(), user, chat.Transcript(turns))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Profile(p))
		return nil
	},
}

func init() {
	profileCmd.PersistentFlags().StringP("user", "u", "", "Learner id (or MENTORLOOP_USER)")
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
}
