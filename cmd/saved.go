package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/msalah0e/funnel/internal/config"
	"github.com/msalah0e/funnel/internal/draft"
	"github.com/msalah0e/funnel/internal/parallel"
	"github.com/msalah0e/funnel/internal/persist"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name>",
		Short: "Save the working draft as a named funnel",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := strings.Join(args, " ")
			w := openWorkspace()
			_, closeStore := w.attachStore()
			defer closeStore()

			rec, err := w.ed.Save(cmd.Context(), name)
			if err != nil {
				ui.Bad.Printf("  Save failed: %v\n", err)
				closeStore()
				os.Exit(1)
			}
			w.commit()

			ui.Good.Printf("  %s Saved %s %s (%d nodes, %d connections)\n", ui.StatusIcon(true), ui.Brand.Sprint(rec.Name),
				ui.Subtle.Sprint(shortID(rec.ID)), len(rec.Graph.Nodes), len(rec.Graph.Connections))
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "load <id|name>",
		Short:             "Replace the working draft with a saved funnel",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: savedCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			_, closeStore := w.attachStore()
			defer closeStore()

			rec, err := w.ed.Load(cmd.Context(), args[0])
			if err != nil {
				ui.Bad.Printf("  Load failed: %v\n", err)
				closeStore()
				os.Exit(1)
			}
			w.commit()

			ui.Good.Printf("  %s Loaded %s (%d nodes, %d connections)\n", ui.StatusIcon(true), ui.Brand.Sprint(rec.Name),
				len(rec.Graph.Nodes), len(rec.Graph.Connections))
		},
	}
}

func savedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "saved",
		Aliases: []string{"funnels"},
		Short:   "Manage saved funnels",
		Run: func(cmd *cobra.Command, args []string) {
			savedListCmd().Run(cmd, args)
		},
	}

	cmd.AddCommand(
		savedListCmd(),
		savedRemoveCmd(),
	)

	return cmd
}

func savedListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List saved funnels, newest first",
		Aliases: []string{"ls"},
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			gw, closeStore := openGateway(cfg)
			defer closeStore()

			recs, err := gw.List(cmd.Context())
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				closeStore()
				os.Exit(1)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(recs, "", "  ")
				fmt.Println(string(data))
				return
			}

			if len(recs) == 0 {
				fmt.Println("  No saved funnels")
				ui.Info.Println("  funnel save <name>")
				return
			}

			ui.Banner("saved funnels · " + gw.Owner())
			var rows [][]string
			for _, r := range recs {
				rows = append(rows, []string{
					shortID(r.ID),
					r.Name,
					fmt.Sprintf("%d", len(r.Graph.Nodes)),
					fmt.Sprintf("%d", len(r.Graph.Connections)),
					r.UpdatedAt.Local().Format("Jan 02 15:04"),
				})
			}
			ui.Table([]string{"ID", "Name", "Nodes", "Connections", "Updated"}, rows)
			fmt.Printf("\n  %d saved\n", len(recs))
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func savedRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "rm <id|name>...",
		Short:             "Delete saved funnels",
		Aliases:           []string{"remove", "delete"},
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: savedCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			gw, closeStore := openGateway(cfg)
			defer closeStore()

			ctx := cmd.Context()
			var tasks []parallel.Task
			for _, ref := range args {
				tasks = append(tasks, parallel.Task{
					Name: ref,
					Fn: func(ctx context.Context) (string, error) {
						rec, err := gw.Find(ctx, ref)
						if err != nil {
							return "", err
						}
						return rec.Name, gw.Delete(ctx, rec.ID)
					},
				})
			}

			ui.Banner("delete")
			results := parallel.Run(ctx, tasks, cfg.Parallel.Concurrency)
			failed := parallel.Failed(results)
			fmt.Printf("\n  %d deleted, %d failed\n", len(results)-len(failed), len(failed))
			if len(failed) > 0 {
				closeStore()
				os.Exit(1)
			}
		},
	}
}

func resetCmd() *cobra.Command {
	var saved bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the working draft",
		Run: func(cmd *cobra.Command, args []string) {
			if err := draft.Clear(); err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Draft cleared\n", ui.StatusIcon(true))

			if !saved {
				return
			}
			cfg := config.Load()
			gw, closeStore := openGateway(cfg)
			defer closeStore()

			fmt.Println()
			results, err := deleteAll(cmd.Context(), gw, cfg.Parallel.Concurrency)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				closeStore()
				os.Exit(1)
			}
			failed := parallel.Failed(results)
			fmt.Printf("\n  %d saved funnels deleted, %d failed\n", len(results)-len(failed), len(failed))
		},
	}

	cmd.Flags().BoolVar(&saved, "saved", false, "Also delete every saved funnel of the current owner")
	return cmd
}

// deleteAll removes every saved funnel of the gateway's owner.
func deleteAll(ctx context.Context, gw *persist.Gateway, concurrency int) ([]parallel.Result, error) {
	recs, err := gw.List(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]parallel.Task, 0, len(recs))
	for _, r := range recs {
		tasks = append(tasks, parallel.Task{
			Name: r.Name,
			Fn: func(ctx context.Context) (string, error) {
				return "", gw.Delete(ctx, r.ID)
			},
		})
	}
	return parallel.Run(ctx, tasks, concurrency), nil
}
