package cmd

import (
	"fmt"

	"github.com/abhisek/mentorloop/internal/training"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Derive a new runtime artifact from recent learning signals",
	Long: `Run one training pass over the most recent learning signals and publish
the derived thresholds as a new artifact version. With --schedule the command
keeps running and trains on the configured cron schedule until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		scheduled, _ := cmd.Flags().GetBool("schedule")
		if !scheduled {
			ver, err := a.Training.Run(cmd.Context())
			if err != nil {
				return err
			}
			if ver == training.SkippedNoData {
				fmt.Fprintln(cmd.OutOrStdout(), "No learning signals yet; artifact unchanged.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published artifact %s\n", ver)
			return nil
		}

		tc := a.Config.Training
		sched, err := training.NewScheduler(a.Training, tc.Schedule, tc.Timeout, a.Logger)
		if err != nil {
			return err
		}
		sched.Start()
		fmt.Fprintf(cmd.OutOrStdout(), "Training on %q, next run %s. Ctrl-C to stop.\n",
			tc.Schedule, sched.Next().Local().Format("2006-01-02 15:04"))

		<-cmd.Context().Done()

		ctx, cancel := shutdownContext()
		defer cancel()
		return sched.Stop(ctx)
	},
}

func init() {
	trainCmd.Flags().Bool("schedule", false, "Keep running and train on the configured schedule")
}
