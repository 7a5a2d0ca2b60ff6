package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/msalah0e/funnel/internal/viewport"
	"github.com/spf13/cobra"
)

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "view",
		Aliases: []string{"viewport"},
		Short:   "Pan, zoom, and preview the canvas",
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			printViewport(w.ed.Viewport())
		},
	}

	cmd.AddCommand(
		viewPanCmd(),
		viewZoomCmd(),
		viewResetCmd(),
		viewLocateCmd(),
		viewOpenCmd(),
	)

	return cmd
}

func printViewport(v viewport.Viewport) {
	fmt.Printf("  %s  %.0f%%\n", ui.Brand.Sprintf("%-6s", "Zoom"), v.Zoom*100)
	fmt.Printf("  %s  %.0f, %.0f\n", ui.Brand.Sprintf("%-6s", "Pan"), v.X, v.Y)
}

func viewPanCmd() *cobra.Command {
	var dx, dy float64

	cmd := &cobra.Command{
		Use:   "pan",
		Short: "Shift the canvas by screen pixels",
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			w.apply(editor.PanBy{DX: dx, DY: dy})
			w.commit()
			printViewport(w.ed.Viewport())
		},
	}

	cmd.Flags().Float64Var(&dx, "dx", 0, "Horizontal shift")
	cmd.Flags().Float64Var(&dy, "dy", 0, "Vertical shift")
	return cmd
}

func viewZoomCmd() *cobra.Command {
	var (
		in, out bool
		set     float64
	)

	cmd := &cobra.Command{
		Use:   "zoom",
		Short: "Zoom in or out (clamped to 30%–200%)",
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			step := w.cfg.EditorSettings().ZoomStep

			switch {
			case cmd.Flags().Changed("set"):
				v := w.ed.Viewport()
				v.SetZoom(set)
				w.ed.SetViewport(v)
			case in:
				w.apply(editor.ZoomBy{Delta: step})
			case out:
				w.apply(editor.ZoomBy{Delta: -step})
			default:
				ui.Bad.Println("  Use --in, --out, or --set")
				os.Exit(1)
			}

			w.commit()
			printViewport(w.ed.Viewport())
		},
	}

	cmd.Flags().BoolVar(&in, "in", false, "Zoom in one step")
	cmd.Flags().BoolVar(&out, "out", false, "Zoom out one step")
	cmd.Flags().Float64Var(&set, "set", 1, "Set the zoom factor directly")
	return cmd
}

func viewResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset pan and zoom",
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			w.ed.SetViewport(viewport.New())
			w.commit()
			printViewport(w.ed.Viewport())
		},
	}
}

func viewLocateCmd() *cobra.Command {
	var (
		x, y       float64
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Report what a screen point hits under the current viewport",
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			at := w.ed.ToCanvas(x, y)
			hit := w.ed.HitTest(at)

			if jsonOutput {
				data, _ := json.MarshalIndent(map[string]any{"canvas": at, "hit": hit}, "", "  ")
				fmt.Println(string(data))
				return
			}

			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-7s", "Canvas"), formatPoint(at))
			switch hit.Kind {
			case editor.HitNone:
				fmt.Printf("  %s  empty canvas\n", ui.Brand.Sprintf("%-7s", "Hit"))
			case editor.HitEdge:
				e, _ := w.ed.Graph().Edge(hit.EdgeID)
				fmt.Printf("  %s  connection %s --> %s\n", ui.Brand.Sprintf("%-7s", "Hit"), w.label(e.From), w.label(e.To))
			default:
				fmt.Printf("  %s  %s of %s\n", ui.Brand.Sprintf("%-7s", "Hit"), hit.Kind, w.label(hit.NodeID))
			}
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "Screen x")
	cmd.Flags().Float64Var(&y, "y", 0, "Screen y")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func viewOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Render the funnel to SVG and open it in the browser",
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			nodes, edges := w.ed.Graph().Len()
			if nodes == 0 {
				fmt.Println("  Empty canvas — add some nodes first")
				return
			}

			title := w.draft.RecordName
			if title == "" {
				title = "funnel"
			}
			svgPath := filepath.Join(os.TempDir(), "funnel-view.svg")
			if err := os.WriteFile(svgPath, []byte(w.ed.SVG(title)), 0o644); err != nil {
				ui.Bad.Printf("  Failed to write SVG: %v\n", err)
				os.Exit(1)
			}

			var openCmd *exec.Cmd
			switch runtime.GOOS {
			case "darwin":
				openCmd = exec.Command("open", svgPath)
			case "linux":
				openCmd = exec.Command("xdg-open", svgPath)
			default:
				openCmd = exec.Command("cmd", "/c", "start", svgPath)
			}

			if err := openCmd.Start(); err != nil {
				fmt.Printf("  SVG written to: %s\n", svgPath)
				fmt.Println("  Open it in your browser to see the funnel")
				return
			}

			ui.Good.Printf("  %s Opened funnel preview (%d nodes, %d connections)\n", ui.StatusIcon(true), nodes, edges)
			ui.Subtle.Printf("  %s\n", svgPath)
		},
	}
}
