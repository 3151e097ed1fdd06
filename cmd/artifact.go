package cmd

import (
	"fmt"
	"time"

	"github.com/abhisek/mentorloop/internal/runtimecfg"
	"github.com/abhisek/mentorloop/internal/ui/components"
	"github.com/spf13/cobra"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Inspect and manage runtime artifact versions",
}

var artifactShowCmd = &cobra.Command{
	Use:   "show [version]",
	Short: "Show the active artifact or a specific version",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		loader := runtimecfg.NewLoader(s.ArtifactRepo(), nil)
		a := loader.Active(cmd.Context())
		if len(args) == 1 {
			if a, err = loader.Get(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("artifact %s: %w", args[0], err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), components.Artifact(a))
		return nil
	},
}

var artifactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published artifact versions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		recs, err := s.ArtifactRepo().List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintf(out, "No artifacts published; using %q.\n", runtimecfg.DefaultVersion)
			return nil
		}
		fmt.Fprintf(out, "%-18s %s\n", "VERSION", "CREATED")
		for _, r := range recs {
			fmt.Fprintf(out, "%-18s %s\n", r.Version, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var artifactResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Publish the built-in defaults as a new artifact version",
	Long: `Publish the built-in thresholds as the newest version. Earlier versions
stay in the history and can still be inspected with "artifact show".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		now := time.Now()
		a := runtimecfg.Defaults()
		a.Version = runtimecfg.NewVersion(now)
		a.CreatedAt = now.UTC()
		if err := runtimecfg.NewLoader(s.ArtifactRepo(), nil).Publish(cmd.Context(), a); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published defaults as %s\n", a.Version)
		return nil
	},
}

func init() {
	artifactListCmd.Flags().Int("limit", 20, "Maximum versions to list")

	artifactCmd.AddCommand(artifactShowCmd)
	artifactCmd.AddCommand(artifactListCmd)
	artifactCmd.AddCommand(artifactResetCmd)
}
