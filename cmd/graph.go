package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/msalah0e/funnel/internal/editor"
	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/route"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

func nodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Aliases: []string{"nodes", "n"},
		Short:   "Add, edit, and inspect funnel nodes",
		Run: func(cmd *cobra.Command, args []string) {
			nodeListCmd().Run(cmd, args)
		},
	}

	cmd.AddCommand(
		nodeAddCmd(),
		nodeSetCmd(),
		nodeRemoveCmd(),
		nodeListCmd(),
		nodeShowCmd(),
		nodeSearchCmd(),
	)

	return cmd
}

// nextSlot places a new node to the right of the rightmost one.
func nextSlot(g *graph.Graph, r route.Router) geom.Point {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return geom.Pt(100, 150)
	}
	right := nodes[0].Position
	for _, n := range nodes[1:] {
		if n.Position.X > right.X {
			right = n.Position
		}
	}
	return geom.Pt(right.X+r.NodeWidth+100, right.Y)
}

func nodeAddCmd() *cobra.Command {
	var (
		at          string
		label       string
		description string
		icon        string
		color       string
	)

	cmd := &cobra.Command{
		Use:               "add <template|custom>",
		Short:             "Add a node from a template, or a custom node",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: templateCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()

			pos := nextSlot(w.ed.Graph(), w.ed.Router())
			if at != "" {
				p, err := parsePoint(at)
				if err != nil {
					ui.Bad.Printf("  %v\n", err)
					os.Exit(1)
				}
				pos = p
			}

			var n graph.Node
			if args[0] == graph.CustomType {
				if label == "" {
					ui.Bad.Println("  Custom nodes need --label")
					os.Exit(1)
				}
				n = graph.NewCustomNode(label, description, icon, color, pos)
			} else {
				var err error
				n, err = graph.NewNodeFromTemplate(args[0], pos)
				if err != nil {
					ui.Bad.Printf("  %v\n", err)
					fmt.Println("  Run `funnel templates` to see the catalog")
					os.Exit(1)
				}
				for dst, v := range map[*string]string{&n.Label: label, &n.Description: description, &n.Icon: icon, &n.Color: color} {
					if v != "" {
						*dst = v
					}
				}
			}

			w.apply(editor.AddNode{Node: n})
			w.commit()

			added, _ := w.ed.Graph().Node(w.ed.LastNode())
			a := added.Appearance()
			ui.Good.Printf("  %s Added %s %s %s at %s\n", ui.StatusIcon(true), ui.Swatch(a.Color), ui.Brand.Sprint(a.Label),
				ui.Subtle.Sprint(shortID(added.ID)), formatPoint(added.Position))
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Canvas position as x,y (default: right of the last node)")
	cmd.Flags().StringVar(&label, "label", "", "Node label")
	cmd.Flags().StringVar(&description, "description", "", "Node description")
	cmd.Flags().StringVar(&icon, "icon", "", "Icon name")
	cmd.Flags().StringVar(&color, "color", "", "Hex color, e.g. #4285F4")
	return cmd
}

func nodeSetCmd() *cobra.Command {
	var (
		at       string
		settings []string
	)

	cmd := &cobra.Command{
		Use:               "set <node>",
		Short:             "Edit a node's fields, position, or config",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			n := w.node(args[0])

			var patch graph.NodePatch
			for flag, dst := range map[string]**string{
				"label":       &patch.Label,
				"description": &patch.Description,
				"icon":        &patch.Icon,
				"color":       &patch.Color,
			} {
				if cmd.Flags().Changed(flag) {
					v, _ := cmd.Flags().GetString(flag)
					*dst = &v
				}
			}
			if at != "" {
				p, err := parsePoint(at)
				if err != nil {
					ui.Bad.Printf("  %v\n", err)
					os.Exit(1)
				}
				patch.Position = &p
			}
			if len(settings) > 0 {
				cfg := make(map[string]any, len(n.Config)+len(settings))
				for k, v := range n.Config {
					cfg[k] = v
				}
				for _, kv := range settings {
					k, v, ok := strings.Cut(kv, "=")
					if !ok || k == "" {
						ui.Bad.Printf("  Invalid setting %q (use key=value)\n", kv)
						os.Exit(1)
					}
					if v == "" {
						delete(cfg, k)
						continue
					}
					cfg[k] = v
				}
				patch.Config = cfg
			}

			w.apply(editor.UpdateNode{ID: n.ID, Patch: patch})
			w.commit()
			ui.Good.Printf("  %s Updated %s\n", ui.StatusIcon(true), ui.Brand.Sprint(w.label(n.ID)))
		},
	}

	cmd.Flags().String("label", "", "Node label")
	cmd.Flags().String("description", "", "Node description")
	cmd.Flags().String("icon", "", "Icon name")
	cmd.Flags().String("color", "", "Hex color (empty to use the template color)")
	cmd.Flags().StringVar(&at, "at", "", "Move to canvas position x,y")
	cmd.Flags().StringArrayVar(&settings, "config", nil, "Set a config value key=value (key= removes it)")
	return cmd
}

func nodeRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "rm <node>",
		Short:             "Remove a node and its connections",
		Aliases:           []string{"remove", "delete"},
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			n := w.node(args[0])
			edges := len(w.ed.Graph().Outgoing(n.ID)) + len(w.ed.Graph().Incoming(n.ID))
			label := w.label(n.ID)

			w.apply(editor.DeleteNode{ID: n.ID})
			w.commit()
			ui.Good.Printf("  %s Removed %s and %d connection(s)\n", ui.StatusIcon(true), ui.Brand.Sprint(label), edges)
		},
	}
}

func nodeListCmd() *cobra.Command {
	var (
		category   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List nodes",
		Aliases: []string{"ls"},
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			g := w.ed.Graph()

			var nodes []graph.Node
			for _, n := range g.Nodes() {
				if category != "" && !strings.EqualFold(string(n.Category), category) {
					continue
				}
				nodes = append(nodes, n)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(nodes, "", "  ")
				fmt.Println(string(data))
				return
			}

			if len(nodes) == 0 {
				fmt.Println("  No nodes on the canvas")
				return
			}

			ui.Banner("nodes")
			var rows [][]string
			for _, n := range nodes {
				a := n.Appearance()
				rels := fmt.Sprintf("%d out / %d in", len(n.ConnectionIDs), len(g.Incoming(n.ID)))
				rows = append(rows, []string{ui.Swatch(a.Color), shortID(n.ID), a.Label, n.Type, formatPoint(n.Position), rels})
			}
			ui.Table([]string{"", "ID", "Label", "Type", "Position", "Connections"}, rows)
			fmt.Printf("\n  %d nodes\n", len(nodes))
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func nodeShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:               "show <node>",
		Short:             "Show a node and its connections",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: nodeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			g := w.ed.Graph()

			if jsonOutput {
				result, err := g.Show(args[0])
				if err != nil {
					ui.Bad.Printf("  %v\n", err)
					os.Exit(1)
				}
				data, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(data))
				return
			}

			output, err := graph.RenderShow(g, args[0],
				func(s string) string { return ui.Brand.Sprint(s) },
				func(s string) string { return ui.Subtle.Sprint(s) },
				func(s string) string { return ui.Info.Sprint(s) },
			)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			fmt.Println()
			fmt.Print(output)
			fmt.Println()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func nodeSearchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search nodes by label, type, category, or description",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			query := args[0]
			w := openWorkspace()
			results := w.ed.Graph().Search(query)

			if jsonOutput {
				data, _ := json.MarshalIndent(results, "", "  ")
				fmt.Println(string(data))
				return
			}

			if len(results) == 0 {
				fmt.Printf("  No nodes found matching %q\n", query)
				return
			}

			ui.Banner("search results")
			var rows [][]string
			for _, r := range results {
				desc := r.Node.Description
				if len(desc) > 40 {
					desc = desc[:37] + "..."
				}
				rows = append(rows, []string{shortID(r.Node.ID), r.Node.Appearance().Label, r.Node.Type, desc, strconv.Itoa(r.Score)})
			}
			ui.Table([]string{"ID", "Label", "Type", "Description", "Score"}, rows)
			fmt.Printf("\n  %d results\n", len(results))
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func connectCmd() *cobra.Command {
	var (
		label     string
		style     string
		curvature float64
	)

	cmd := &cobra.Command{
		Use:               "connect <from> <to>",
		Short:             "Connect two nodes",
		Aliases:           []string{"link"},
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: nodeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			from, to := w.node(args[0]), w.node(args[1])

			w.apply(editor.Connect{From: from.ID, To: to.ID, Label: label})

			var patch graph.EdgePatch
			if style != "" {
				st := graph.EdgeStyle(style)
				patch.Style = &st
			}
			if cmd.Flags().Changed("curvature") {
				patch.Curvature = &curvature
			}
			if patch.Style != nil || patch.Curvature != nil {
				id := w.ed.LastEdge()
				if err := w.ed.Apply(editor.UpdateEdge{ID: id, Patch: patch}); err != nil {
					ui.Bad.Printf("  %v\n", err)
					os.Exit(1)
				}
			}
			w.commit()

			e, _ := w.ed.Graph().Edge(w.ed.LastEdge())
			arrow := "-->"
			if e.Label != "" {
				arrow = "--" + e.Label + "-->"
			}
			ui.Good.Printf("  %s %s %s %s %s\n", ui.StatusIcon(true), ui.Brand.Sprint(w.label(from.ID)), arrow,
				ui.Brand.Sprint(w.label(to.ID)), ui.Subtle.Sprintf("(%s, %s)", shortID(e.ID), e.Style))
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Connection label")
	cmd.Flags().StringVar(&style, "style", "", "Routing style: straight, curved, orthogonal")
	cmd.Flags().Float64Var(&curvature, "curvature", 0.5, "Curve bulge in (0, 1]")
	return cmd
}

func edgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edge",
		Aliases: []string{"edges", "connection"},
		Short:   "Edit and inspect connections",
		Run: func(cmd *cobra.Command, args []string) {
			edgeListCmd().Run(cmd, args)
		},
	}

	cmd.AddCommand(
		edgeListCmd(),
		edgeSetCmd(),
		edgeRemoveCmd(),
	)

	return cmd
}

func edgeListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List connections",
		Aliases: []string{"ls"},
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			edges := w.ed.Graph().Edges()

			if jsonOutput {
				data, _ := json.MarshalIndent(edges, "", "  ")
				fmt.Println(string(data))
				return
			}

			if len(edges) == 0 {
				fmt.Println("  No connections")
				return
			}

			ui.Banner("connections")
			var rows [][]string
			for _, e := range edges {
				curv := "-"
				if e.Style == graph.StyleCurved {
					curv = strconv.FormatFloat(e.Curvature, 'f', -1, 64)
				}
				rows = append(rows, []string{shortID(e.ID), w.label(e.From), w.label(e.To), string(e.Style), curv, e.Label})
			}
			ui.Table([]string{"ID", "From", "To", "Style", "Curvature", "Label"}, rows)
			fmt.Printf("\n  %d connections\n", len(edges))
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func edgeSetCmd() *cobra.Command {
	var (
		label         string
		style         string
		curvature     float64
		controls      []string
		clearControls bool
	)

	cmd := &cobra.Command{
		Use:               "set <edge>",
		Short:             "Edit a connection's label, style, or curve",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: edgeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			e := w.edge(args[0])

			var patch graph.EdgePatch
			if cmd.Flags().Changed("label") {
				patch.Label = &label
			}
			if style != "" {
				st := graph.EdgeStyle(style)
				patch.Style = &st
			}
			if cmd.Flags().Changed("curvature") {
				patch.Curvature = &curvature
			}
			if clearControls {
				none := []geom.Point{}
				patch.ControlPoints = &none
			} else if len(controls) > 0 {
				pts := make([]geom.Point, 0, len(controls))
				for _, c := range controls {
					p, err := parsePoint(c)
					if err != nil {
						ui.Bad.Printf("  %v\n", err)
						os.Exit(1)
					}
					pts = append(pts, p)
				}
				patch.ControlPoints = &pts
			}

			w.apply(editor.UpdateEdge{ID: e.ID, Patch: patch})
			w.commit()
			ui.Good.Printf("  %s Updated %s %s %s\n", ui.StatusIcon(true), ui.Brand.Sprint(w.label(e.From)), "-->", ui.Brand.Sprint(w.label(e.To)))
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Connection label (empty removes it)")
	cmd.Flags().StringVar(&style, "style", "", "Routing style: straight, curved, orthogonal")
	cmd.Flags().Float64Var(&curvature, "curvature", 0.5, "Curve bulge in (0, 1]")
	cmd.Flags().StringArrayVar(&controls, "control", nil, "Manual control point x,y (repeat for the second)")
	cmd.Flags().BoolVar(&clearControls, "clear-controls", false, "Drop manual control points")
	return cmd
}

func edgeRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "rm <edge>",
		Short:             "Remove a connection",
		Aliases:           []string{"remove", "delete"},
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: edgeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			e := w.edge(args[0])
			w.apply(editor.DeleteEdge{ID: e.ID})
			w.commit()
			ui.Good.Printf("  %s Removed %s --> %s\n", ui.StatusIcon(true), w.label(e.From), w.label(e.To))
		},
	}
}

func routeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:               "route <edge>",
		Short:             "Show the computed path of a connection",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: edgeCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			w := openWorkspace()
			e := w.edge(args[0])

			rt, err := w.ed.Router().Edge(w.ed.Graph(), e)
			if err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(rt, "", "  ")
				fmt.Println(string(data))
				return
			}

			ui.Banner("route " + shortID(e.ID))
			fmt.Printf("  %s  %s --> %s\n", ui.Brand.Sprintf("%-8s", "Edge"), w.label(e.From), w.label(e.To))
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Style"), rt.Style)
			pts := make([]string, len(rt.Points))
			for i, p := range rt.Points {
				pts[i] = formatPoint(p)
			}
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Points"), strings.Join(pts, "  "))
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Path"), rt.D)
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Midpoint"), formatPoint(rt.Mid))
			if rt.Text != "" {
				fmt.Printf("  %s  %q at %s\n", ui.Brand.Sprintf("%-8s", "Label"), rt.Text, formatPoint(rt.Label))
			}
			fmt.Printf("  %s  %.0fpx stroke\n", ui.Brand.Sprintf("%-8s", "Hit"), rt.Hit.Width)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
