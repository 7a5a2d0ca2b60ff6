package cmd

import (
	"fmt"
	"os"

	"github.com/msalah0e/funnel/internal/replay"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

func replayCmd() *cobra.Command {
	var (
		dryRun    bool
		withStore bool
	)

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Play a scripted sequence of pointer and key events on the draft",
		Long: `Play pointer, wheel, and key events against the working draft, exactly as
the canvas would receive them. Steps that are rejected are reported and
the script continues.

  steps:
    - drop: {template: google_ads, x: 100, y: 150}
    - drop: {label: Thank you, x: 400, y: 150}
    - pointer: {kind: down, x: 300, y: 190}
    - pointer: {kind: down, x: 450, y: 190}
    - key: {key: s, mods: {ctrl: true}}
    - save: Launch`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			script, err := replay.Load(args[0])
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			w := openWorkspace()
			if withStore {
				_, closeStore := w.attachStore()
				defer closeStore()
			}

			title := script.Name
			if title == "" {
				title = args[0]
			}
			ui.Banner("replay · " + title)

			outcomes := replay.Run(cmd.Context(), w.ed, script)
			rejected := 0
			for _, o := range outcomes {
				switch {
				case o.Rejected():
					rejected++
					fmt.Printf("  %s %3d  %s %s\n", ui.StatusIcon(false), o.Step, o.Command, ui.Bad.Sprint(o.Err))
				case o.Command == "":
					fmt.Printf("  %s %3d  %s\n", ui.Subtle.Sprint("·"), o.Step, ui.Subtle.Sprint("ignored"))
				default:
					fmt.Printf("  %s %3d  %s\n", ui.StatusIcon(true), o.Step, o.Command)
				}
			}

			nodes, edges := w.ed.Graph().Len()
			fmt.Printf("\n  %d steps, %d rejected · %d nodes, %d connections\n", len(outcomes), rejected, nodes, edges)

			if dryRun {
				ui.Subtle.Println("  Dry run: draft not changed")
				return
			}
			w.commit()
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Play the script without saving the draft")
	cmd.Flags().BoolVar(&withStore, "store", false, "Allow save steps to write to the saved-funnel database")
	return cmd
}
