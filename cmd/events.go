package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/supportagent/internal/llm"
	"github.com/abhisek/supportagent/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recorded model calls",
}

// withEventRepo opens the configured event database for a read command.
func withEventRepo(cmd *cobra.Command, fn func(ctx context.Context, repo store.EventRepo) error) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if s.DBPath == "" {
		return fmt.Errorf("no event database configured: set SUPPORT_DB or pass --db")
	}
	st, err := openStore(s)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(cmd.Context(), st.EventRepo())
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		requestID, _ := cmd.Flags().GetString("request-id")
		since, _ := cmd.Flags().GetDuration("since")

		opts := store.QueryOpts{Limit: limit, RequestID: requestID}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}

		return withEventRepo(cmd, func(ctx context.Context, repo store.EventRepo) error {
			events, err := repo.QueryLLMEvents(ctx, opts)
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}

			if len(events) == 0 {
				fmt.Println("No model calls recorded.")
				return nil
			}

			fmt.Printf("%-5s  %-19s  %-36s  %-28s  %-6s  %-6s  %-7s  %s\n",
				"ID", "Timestamp", "Request", "Model", "In", "Out", "Ms", "OK")
			fmt.Println(strings.Repeat("─", 126))

			for _, e := range events {
				ok := "✓"
				if !e.Success {
					ok = "✗"
				}
				fmt.Printf("%-5d  %-19s  %-36s  %-28s  %-6d  %-6d  %-7d  %s\n",
					e.ID,
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					orDash(e.RequestID),
					truncate(e.Model, 28),
					e.InputTokens,
					e.OutputTokens,
					e.LatencyMs,
					ok,
				)
			}
			return nil
		})
	},
}

var eventsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View the full request and response of one model call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		return withEventRepo(cmd, func(ctx context.Context, repo store.EventRepo) error {
			e, err := repo.GetLLMEvent(ctx, id)
			if err != nil {
				return fmt.Errorf("get event: %w", err)
			}
			if e == nil {
				return fmt.Errorf("event %d not found", id)
			}

			sep := strings.Repeat("─", 60)

			fmt.Printf("ID:        %d\n", e.ID)
			fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Request:   %s\n", orDash(e.RequestID))
			fmt.Printf("Provider:  %s\n", e.Provider)
			fmt.Printf("Model:     %s\n", e.Model)
			fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
			if cost := llm.LookupCost(e.Model); cost != nil {
				fmt.Printf("Cost:      %s\n", formatCost(cost.Cost(e.InputTokens, e.OutputTokens)))
			}
			fmt.Printf("Latency:   %dms\n", e.LatencyMs)
			fmt.Printf("Success:   %v\n", e.Success)
			if e.ErrorMessage != "" {
				fmt.Printf("Error:     %s\n", e.ErrorMessage)
			}

			for _, section := range []struct{ title, body string }{
				{"REQUEST", e.RequestBody},
				{"RESPONSE", e.ResponseBody},
			} {
				fmt.Println()
				fmt.Println(sep)
				fmt.Println(section.title)
				fmt.Println(sep)
				fmt.Println(orDefault(section.body, "(not captured)"))
			}
			return nil
		})
	},
}

var eventsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage, failures, and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEventRepo(cmd, func(ctx context.Context, repo store.EventRepo) error {
			usage, err := repo.LLMUsageByModel(ctx)
			if err != nil {
				return fmt.Errorf("query model usage: %w", err)
			}

			if len(usage) == 0 {
				fmt.Println("No model usage recorded yet.")
				return nil
			}

			rule := strings.Repeat("─", 96)
			fmt.Println(rule)
			fmt.Printf("%-32s  %6s  %6s  %10s  %10s  %8s  %10s\n",
				"Model", "Calls", "Failed", "Input", "Output", "Avg Ms", "Cost")
			fmt.Println(rule)

			var totalCalls, totalFailed, totalIn, totalOut int
			var totalCost float64
			var unknownModels []string
			for _, mu := range usage {
				totalCalls += mu.Calls
				totalFailed += mu.Failures
				totalIn += mu.InputTokens
				totalOut += mu.OutputTokens

				costStr := "?"
				if cost := llm.LookupCost(mu.Model); cost != nil {
					c := cost.Cost(mu.InputTokens, mu.OutputTokens)
					totalCost += c
					costStr = formatCost(c)
				} else {
					unknownModels = append(unknownModels, mu.Model)
				}
				fmt.Printf("%-32s  %6d  %6d  %10d  %10d  %8d  %10s\n",
					truncate(mu.Model, 32), mu.Calls, mu.Failures, mu.InputTokens, mu.OutputTokens, mu.AvgLatencyMs, costStr)
			}

			fmt.Println(rule)
			label := "TOTAL"
			if len(unknownModels) > 0 {
				label = "TOTAL (partial)"
			}
			fmt.Printf("%-32s  %6d  %6d  %10d  %10d  %8s  %10s\n",
				label, totalCalls, totalFailed, totalIn, totalOut, "", formatCost(totalCost))

			if len(unknownModels) > 0 {
				fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
			}
			return nil
		})
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func orDash(s string) string { return orDefault(s, "-") }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	eventsListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsListCmd.Flags().StringP("request-id", "r", "", "Only show calls for this request id")
	eventsListCmd.Flags().Duration("since", 0, "Only show calls newer than this (e.g. 1h)")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsViewCmd)
	eventsCmd.AddCommand(eventsStatsCmd)
}
