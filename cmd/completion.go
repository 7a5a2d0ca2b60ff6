package cmd

import (
	"context"

	"github.com/msalah0e/funnel/internal/config"
	"github.com/msalah0e/funnel/internal/draft"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/msalah0e/funnel/internal/persist"
	"github.com/msalah0e/funnel/internal/store"
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
func completionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate completion scripts for your shell.

  # Bash (add to ~/.bashrc)
  eval "$(funnel completion bash)"

  # Zsh (add to ~/.zshrc)
  eval "$(funnel completion zsh)"

  # Fish
  funnel completion fish | source

  # PowerShell
  funnel completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				_ = rootCmd.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				_ = rootCmd.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				_ = rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				_ = rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
		},
	}

	return cmd
}

func draftGraph() *graph.Graph {
	d, err := draft.Load()
	if err != nil {
		return graph.New()
	}
	g, err := graph.FromSnapshot(d.Graph)
	if err != nil {
		return graph.New()
	}
	return g
}

// nodeCompletionFunc completes node ids from the draft, described by label.
func nodeCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, n := range draftGraph().Nodes() {
		completions = append(completions, n.ID+"\t"+n.Appearance().Label)
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// edgeCompletionFunc completes connection ids from the draft.
func edgeCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	g := draftGraph()
	var completions []string
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		completions = append(completions, e.ID+"\t"+from.Appearance().Label+" → "+to.Appearance().Label)
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// savedCompletionFunc completes saved funnel ids, described by name.
func savedCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg := config.Load()
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer st.Close()

	recs, err := persist.New(st, cfg.Owner).List(context.Background())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var completions []string
	for _, r := range recs {
		completions = append(completions, r.ID+"\t"+r.Name)
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
