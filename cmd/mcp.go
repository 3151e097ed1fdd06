package cmd

import (
	"github.com/abhisek/mentorloop/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the tutor as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing tutor_ask,
tutor_feedback and the interview_* tools. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		return mcpserver.NewServer(a.Chat, a.Feedback, a.Interview, version).Run()
	},
}
