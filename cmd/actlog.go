package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/msalah0e/funnel/internal/activity"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

func actlogCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"activity", "logs"},
		Short:   "Activity log — saves, loads, sessions, and skipped connections",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("activity log")

			entries, err := activity.Read(count)
			if err != nil || len(entries) == 0 {
				fmt.Println("  No activity recorded yet.")
				fmt.Println("  Activity is logged by `funnel save`, `funnel load`, and `funnel serve`")
				return
			}

			var rows [][]string
			for _, e := range entries {
				rows = append(rows, []string{
					e.Timestamp.Local().Format("Jan 02 15:04"),
					e.Action,
					truncateLog(e.Target, 12),
					truncateLog(e.Details, 40),
				})
			}
			ui.Table([]string{"Time", "Action", "Target", "Details"}, rows)
			fmt.Printf("\n  Showing %d most recent entries\n", len(entries))
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "Number of entries to show")

	cmd.AddCommand(
		actlogSearchCmd(),
		actlogClearCmd(),
		actlogExportCmd(),
		actlogStatsCmd(),
	)

	return cmd
}

func actlogSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search activity log entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			results, err := activity.Search(args[0], 50)
			if err != nil || len(results) == 0 {
				fmt.Printf("  No entries matching %q\n", args[0])
				return
			}

			ui.Banner("search results")
			var rows [][]string
			for _, e := range results {
				rows = append(rows, []string{
					e.Timestamp.Local().Format("Jan 02 15:04"),
					e.Action,
					truncateLog(e.Target, 12),
					truncateLog(e.Details, 40),
				})
			}
			ui.Table([]string{"Time", "Action", "Target", "Details"}, rows)
			fmt.Printf("\n  %d results\n", len(results))
		},
	}
}

func actlogClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the activity log",
		Run: func(cmd *cobra.Command, args []string) {
			if err := activity.Clear(); err != nil {
				ui.Bad.Printf("  Failed to clear: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Activity log cleared\n", ui.StatusIcon(true))
		},
	}
}

func actlogExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export activity log as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := activity.Read(0)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			data, _ := json.MarshalIndent(entries, "", "  ")
			fmt.Println(string(data))
		},
	}
}

func actlogStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show activity statistics",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("activity stats")

			entries, err := activity.Read(0)
			if err != nil || len(entries) == 0 {
				fmt.Println("  No activity data")
				return
			}

			actionCounts := make(map[string]int)
			failures := 0
			for _, e := range entries {
				actionCounts[e.Action]++
				if activity.IsFailure(e.Action) {
					failures++
				}
			}

			fmt.Printf("  Total entries: %d\n\n", len(entries))

			actions := make([]string, 0, len(actionCounts))
			for a := range actionCounts {
				actions = append(actions, a)
			}
			sort.Strings(actions)

			fmt.Println("  By action:")
			for _, action := range actions {
				fmt.Printf("    %-20s %d\n", action, actionCounts[action])
			}

			if failures > 0 {
				fmt.Printf("\n  %s %d failed operations\n", ui.WarnIcon(), failures)
			}
		},
	}
}

func truncateLog(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
