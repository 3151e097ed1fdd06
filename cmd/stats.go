package cmd

import (
	"fmt"

	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/training"
	"github.com/abhisek/mentorloop/internal/ui/components"
	"github.com/abhisek/mentorloop/internal/ui/theme"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	Long: `Summarize the recent learning signals the way a training run would see
them, along with explicit feedback and the improvement notes derived from it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		window, _ := cmd.Flags().GetInt("window")
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		signals, err := s.SignalRepo().RecentSignals(ctx, window)
		if err != nil {
			return err
		}
		ratings, err := s.FeedbackRepo().Recent(ctx, window)
		if err != nil {
			return err
		}
		improvements, err := s.SignalRepo().RecentImprovements(ctx, limit)
		if err != nil {
			return err
		}
		chunks, err := s.ChunkRepo().Count(ctx)
		if err != nil {
			return err
		}
		active := runtimecfg.NewLoader(s.ArtifactRepo(), nil).Active(ctx)

		out := cmd.OutOrStdout()
		line := func(label, value string) {
			fmt.Fprintln(out, theme.Label.Render(label)+theme.Body.Render(value))
		}

		fmt.Fprintln(out, theme.Title.Render("Learning statistics"))
		fmt.Fprintln(out)
		line("Active artifact", active.Version)
		line("Content chunks", fmt.Sprint(chunks))

		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Heading.Render("Signals"))
		if len(signals) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("No learning signals yet."))
		} else {
			st := training.Aggregate(signals)
			line("Observed turns", fmt.Sprint(st.Total))
			line("Window", fmt.Sprintf("%s to %s",
				st.Oldest.Local().Format("2006-01-02 15:04"), st.Newest.Local().Format("2006-01-02 15:04")))
			line("Confident confusion", fmt.Sprint(st.ConfidentConfusion))
			line("Beginner questions", fmt.Sprintf("%d (%d confused)", st.Basic, st.BasicConfusion))
			fmt.Fprintln(out, components.Bar("Error rate", st.ErrorRate, true, 60))
			fmt.Fprintln(out, components.Bar("Beginner confusion", st.BeginnerConfusionRate, true, 60))
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Heading.Render("Feedback"))
		var up, down int
		for _, r := range ratings {
			if r.Rating > 0 {
				up++
			} else {
				down++
			}
		}
		line("Thumbs up", fmt.Sprint(up))
		line("Thumbs down", fmt.Sprint(down))

		if len(improvements) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.Heading.Render("Recent improvement notes"))
			for _, imp := range improvements {
				fmt.Fprintf(out, "  %s %s %s\n",
					theme.LevelStyle(priorityLevel(imp.PriorityLevel)).Render(fmt.Sprintf("[%s]", imp.PriorityLevel)),
					theme.Body.Render(imp.AffectedTopic+":"),
					theme.Hint.Render(imp.SuggestedFix))
			}
		}
		return nil
	},
}

// priorityLevel maps an improvement priority onto the level colors.
func priorityLevel(p string) string {
	switch p {
	case "low":
		return "strong"
	case "medium":
		return "medium"
	default:
		return "weak"
	}
}

func init() {
	statsCmd.Flags().Int("window", training.DefaultWindow, "Number of recent signals and ratings to summarize")
	statsCmd.Flags().Int("limit", 5, "Number of improvement notes to list")
}
