package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Load curriculum content into the vector store",
	Long: `Ingest markdown (.md, .markdown), plain text (.txt) and YAML chunk bundles
(.yaml, .yml). Directories are walked recursively. Unchanged chunks are not
re-embedded, and chunks that disappeared from a source are removed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		st, err := a.Ingester.IngestPaths(cmd.Context(), args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Sources:    %d\n", st.Sources)
		fmt.Fprintf(out, "Chunks:     %d\n", st.Chunks)
		fmt.Fprintf(out, "Embedded:   %d\n", st.Embedded)
		fmt.Fprintf(out, "Unchanged:  %d\n", st.Unchanged)
		fmt.Fprintf(out, "Removed:    %d\n", st.Removed)
		if st.Failed > 0 {
			fmt.Fprintf(out, "Failed:     %d (re-run ingest to retry)\n", st.Failed)
		}
		return nil
	},
}
