package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/msalah0e/funnel/internal/config"
	"github.com/msalah0e/funnel/internal/draft"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/parallel"
	"github.com/msalah0e/funnel/internal/route"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

// render encodes g in one of the export formats.
func render(g *graph.Graph, r route.Router, format, title string) ([]byte, error) {
	switch format {
	case "dot":
		return []byte(g.ExportDOT()), nil
	case "svg":
		return []byte(route.RenderSVG(g, r, route.SVGOptions{Title: title})), nil
	}
	f, err := graph.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("unknown format: %s (use json, yaml, dot, or svg)", format)
	}
	return graph.MarshalSnapshot(g.Snapshot(), f)
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

func fileSlug(name string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "funnel"
	}
	return s
}

func exportCmd() *cobra.Command {
	var (
		format string
		out    string
		all    bool
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the draft, or every saved funnel",
		Run: func(cmd *cobra.Command, args []string) {
			if all {
				exportAll(cmd.Context(), format, dir)
				return
			}

			w := openWorkspace()
			title := w.draft.RecordName
			if title == "" {
				title = "funnel"
			}
			data, err := render(w.ed.Graph(), w.ed.Router(), format, title)
			if err != nil {
				ui.Bad.Printf("  Export failed: %v\n", err)
				os.Exit(1)
			}

			if out == "" {
				fmt.Print(string(data))
				if format == "json" {
					fmt.Println()
				}
				return
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				ui.Bad.Printf("  Failed to write %s: %v\n", out, err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Exported to %s\n", ui.StatusIcon(true), out)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Export format: json, yaml, dot, or svg")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&all, "all", false, "Export every saved funnel")
	cmd.Flags().StringVar(&dir, "dir", ".", "Output directory for --all")
	return cmd
}

func exportAll(ctx context.Context, format, dir string) {
	cfg := config.Load()
	gw, closeStore := openGateway(cfg)
	defer closeStore()

	recs, err := gw.List(ctx)
	if err != nil {
		ui.Bad.Printf("  %v\n", err)
		closeStore()
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("  No saved funnels")
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		ui.Bad.Printf("  %v\n", err)
		closeStore()
		os.Exit(1)
	}

	router := cfg.RouterSettings()
	var tasks []parallel.Task
	for _, rec := range recs {
		path := filepath.Join(dir, fileSlug(rec.Name)+"-"+shortID(rec.ID)+"."+format)
		tasks = append(tasks, parallel.Task{
			Name: rec.Name,
			Fn: func(ctx context.Context) (string, error) {
				g, err := graph.FromSnapshot(rec.Graph)
				if err != nil {
					return "", err
				}
				data, err := render(g, router, format, rec.Name)
				if err != nil {
					return "", err
				}
				return path, os.WriteFile(path, data, 0o644)
			},
		})
	}

	ui.Banner("export")
	results := parallel.Run(ctx, tasks, cfg.Parallel.Concurrency)
	failed := parallel.Failed(results)
	fmt.Printf("\n  %d exported to %s, %d failed\n", len(results)-len(failed), dir, len(failed))
	if len(failed) > 0 {
		closeStore()
		os.Exit(1)
	}
}

func importCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the working draft with a JSON or YAML funnel file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				ui.Bad.Printf("  Failed to read file: %v\n", err)
				os.Exit(1)
			}

			if format == "" {
				format = filepath.Ext(path)
			}
			f, err := graph.ParseFormat(format)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			snap, err := graph.ParseSnapshot(data, f)
			if err != nil {
				ui.Bad.Printf("  Import failed: %v\n", err)
				os.Exit(1)
			}
			g, err := graph.FromSnapshot(snap)
			if err != nil {
				ui.Bad.Printf("  Import failed: %v\n", err)
				os.Exit(1)
			}

			d, err := draft.Load()
			if err != nil {
				d = &draft.Draft{}
			}
			d.Graph = g.Snapshot()
			d.RecordID, d.RecordName = "", ""
			if err := draft.Save(d); err != nil {
				ui.Bad.Printf("  Failed to save draft: %v\n", err)
				os.Exit(1)
			}

			nodes, edges := g.Len()
			ui.Good.Printf("  %s Imported %d nodes, %d connections\n", ui.StatusIcon(true), nodes, edges)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Input format: json or yaml (default: from extension)")
	return cmd
}
