package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

func templatesCmd() *cobra.Command {
	var (
		category   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"palette"},
		Short:   "List the node templates",
		Run: func(cmd *cobra.Command, args []string) {
			var list []graph.Template
			for _, t := range graph.Templates() {
				if category != "" && !strings.EqualFold(string(t.Category), category) {
					continue
				}
				list = append(list, t)
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(data))
				return
			}

			if len(list) == 0 {
				fmt.Printf("  No templates in category %q\n", category)
				return
			}

			ui.Banner("templates")
			var rows [][]string
			for _, t := range list {
				n, _ := graph.NewNodeFromTemplate(t.Key, geom.Point{})
				a := n.Appearance()
				rows = append(rows, []string{ui.Swatch(a.Color), t.Key, t.Label, string(t.Category), t.Description})
			}
			ui.Table([]string{"", "Key", "Label", "Category", "Description"}, rows)
			fmt.Printf("\n  %d templates · add one with %s\n", len(list), ui.Info.Sprint("funnel node add <key>"))
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category (acquisition, system, communication, conversion)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// templateCompletionFunc completes template keys.
func templateCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	completions := []string{graph.CustomType + "\tFree-form node"}
	for _, t := range graph.Templates() {
		completions = append(completions, t.Key+"\t"+t.Label)
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
