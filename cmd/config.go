package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/funnel/internal/activity"
	"github.com/msalah0e/funnel/internal/config"
	"github.com/msalah0e/funnel/internal/draft"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the funnel config",
		Run: func(cmd *cobra.Command, args []string) {
			configShowCmd().Run(cmd, args)
		},
	}

	cmd.AddCommand(
		configShowCmd(),
		configInitCmd(),
		configPathCmd(),
	)

	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config, including .env and environment overrides",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if _, err := os.Stat(config.Path()); os.IsNotExist(err) {
				fmt.Println(ui.Subtle.Sprint("# no config file; defaults shown. Run `funnel config init` to create one"))
			}
			if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
				ui.Bad.Printf("  %v\n", err)
				os.Exit(1)
			}
		},
	}
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := os.Stat(config.Path()); err == nil {
				fmt.Printf("  Config already exists at %s\n", config.Path())
				return
			}
			if err := config.EnsureExists(); err != nil {
				ui.Bad.Printf("  Failed to write config: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Wrote %s\n", ui.StatusIcon(true), config.Path())
		},
	}
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where funnel keeps its files",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-9s", "Config"), config.Path())
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-9s", "Store"), cfg.StorePath())
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-9s", "Draft"), draft.Path())
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-9s", "Activity"), activity.Path())
		},
	}
}
