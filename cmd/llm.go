package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/abhisek/mentorloop/internal/ui/theme"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect model calls, token usage and cost",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No model calls recorded.")
			return nil
		}

		rows := make([][]string, 0, len(events))
		for _, e := range events {
			ok := "ok"
			if !e.Success {
				ok = "failed"
			}
			rows = append(rows, []string{
				strconv.Itoa(e.ID),
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				truncate(e.Model, 28),
				strconv.Itoa(e.InputTokens),
				strconv.Itoa(e.OutputTokens),
				strconv.FormatInt(e.LatencyMs, 10),
				ok,
			})
		}
		fmt.Fprintln(out, grid([]string{"ID", "TIME", "PURPOSE", "MODEL", "IN", "OUT", "MS", "STATUS"}, rows))
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one model call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("event %d: %w", id, store.ErrNotFound)
		}

		out := cmd.OutOrStdout()
		field := func(label, value string) {
			fmt.Fprintln(out, theme.Label.Render(label)+theme.Body.Render(value))
		}
		field("Time", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		field("Provider", e.Provider)
		field("Model", e.Model)
		field("Purpose", e.Purpose)
		field("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens))
		field("Latency", fmt.Sprintf("%dms", e.LatencyMs))
		if e.ErrorMessage != "" {
			field("Error", e.ErrorMessage)
		}
		body(out, "Request", e.RequestBody)
		body(out, "Response", e.ResponseBody)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize token usage per purpose and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(out, "No model calls recorded.")
			return nil
		}

		var calls, in, outTok int
		rows := make([][]string, 0, len(byPurpose)+1)
		for _, u := range byPurpose {
			rows = append(rows, []string{u.Purpose, strconv.Itoa(u.Calls), strconv.Itoa(u.InputTokens),
				strconv.Itoa(u.OutputTokens), strconv.FormatInt(u.AvgLatencyMs, 10)})
			calls += u.Calls
			in += u.InputTokens
			outTok += u.OutputTokens
		}
		rows = append(rows, []string{"total", strconv.Itoa(calls), strconv.Itoa(in), strconv.Itoa(outTok), ""})
		fmt.Fprintln(out, theme.Heading.Render("Usage by purpose"))
		fmt.Fprintln(out, grid([]string{"PURPOSE", "CALLS", "INPUT", "OUTPUT", "AVG MS"}, rows))

		var total float64
		var unpriced []string
		rows = rows[:0]
		for _, u := range byModel {
			cost := "?"
			if mc := llm.LookupCost(u.Model); mc != nil {
				c := mc.Cost(u.InputTokens, u.OutputTokens)
				total += c
				cost = formatCost(c)
			} else {
				unpriced = append(unpriced, u.Model)
			}
			rows = append(rows, []string{truncate(u.Model, 32), strconv.Itoa(u.Calls),
				strconv.Itoa(u.InputTokens), strconv.Itoa(u.OutputTokens), cost})
		}
		label := "total"
		if len(unpriced) > 0 {
			label = "total (partial)"
		}
		rows = append(rows, []string{label, "", "", "", formatCost(total)})
		fmt.Fprintln(out)
		fmt.Fprintln(out, theme.Heading.Render("Estimated cost (USD)"))
		fmt.Fprintln(out, grid([]string{"MODEL", "CALLS", "INPUT", "OUTPUT", "COST"}, rows))
		if len(unpriced) > 0 {
			fmt.Fprintln(out, theme.Hint.Render("No pricing for: "+strings.Join(unpriced, ", ")))
		}
		return nil
	},
}

// grid renders rows as a bordered table with a styled header.
func grid(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.Heading.Padding(0, 1)
			}
			return theme.Body.Padding(0, 1)
		}).
		String()
}

func body(w io.Writer, title, text string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Heading.Render(title))
	if text == "" {
		text = theme.Hint.Render("(not captured)")
	}
	fmt.Fprintln(w, text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "",
		"Only calls with this purpose (tutor-answer, intent-classification, learning-observer, ...)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
