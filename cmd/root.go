package cmd

import (
	"fmt"

	"github.com/msalah0e/funnel/internal/draft"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "funnel",
	Short: "funnel — a node-graph editor for marketing funnels",
	Long: ui.Brand.Sprint(ui.Mark+" funnel") + " — design marketing funnels as connected nodes\n" +
		ui.Subtle.Sprint("Place nodes, draw connections, and save named funnels"),
	Version: version + " " + ui.Mark,
	Run: func(cmd *cobra.Command, args []string) {
		d, err := draft.Load()
		if err != nil {
			ui.Bad.Printf("  Failed to load draft: %v\n", err)
			return
		}
		g, err := graph.FromSnapshot(d.Graph)
		if err != nil {
			ui.Bad.Printf("  Failed to load draft: %v\n", err)
			return
		}

		title := "working draft"
		if d.RecordName != "" {
			title = d.RecordName
		}
		ui.Banner(title)

		stats := g.Stats()
		if stats.Nodes == 0 {
			fmt.Println("  Empty canvas. Get started:")
			fmt.Println()
			ui.Info.Println("  funnel templates")
			ui.Info.Println("  funnel node add google_ads")
			ui.Info.Println("  funnel connect <from> <to>")
			return
		}

		fmt.Printf("  %s  %d\n", ui.Brand.Sprintf("%-12s", "Nodes"), stats.Nodes)
		fmt.Printf("  %s  %d (%d labeled)\n", ui.Brand.Sprintf("%-12s", "Connections"), stats.Edges, stats.Labeled)
		fmt.Printf("  %s  %.0f%%  pan %.0f,%.0f\n", ui.Brand.Sprintf("%-12s", "Viewport"), d.Viewport.Zoom*100, d.Viewport.X, d.Viewport.Y)
		for _, c := range []graph.Category{graph.CategoryAcquisition, graph.CategorySystem, graph.CategoryCommunication, graph.CategoryConversion, graph.CategoryCustom} {
			if n := stats.ByCategory[c]; n > 0 {
				fmt.Printf("  %s  %d\n", ui.Subtle.Sprintf("%-12s", c), n)
			}
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate("funnel {{ .Version }}\n")

	rootCmd.AddCommand(
		templatesCmd(),
		nodeCmd(),
		connectCmd(),
		edgeCmd(),
		routeCmd(),
		viewCmd(),
		saveCmd(),
		loadCmd(),
		savedCmd(),
		exportCmd(),
		importCmd(),
		replayCmd(),
		resetCmd(),
		serveCmd(),
		actlogCmd(),
		configCmd(),
		completionCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
