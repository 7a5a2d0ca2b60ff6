package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/msalah0e/funnel/internal/config"
	"github.com/msalah0e/funnel/internal/serve"
	"github.com/msalah0e/funnel/internal/store"
	"github.com/msalah0e/funnel/internal/ui"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr  string
		owner string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live editing sessions over WebSocket",
		Long: `Start the session server. Each WebSocket client on /ws gets its own
editor; pointer, wheel, and key events go in, render-ready state comes out.
Saved funnels go to the same database as ` + "`funnel save`" + `.

  funnel serve                  # listen on the configured address
  funnel serve --addr :9090
  curl localhost:8080/health`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if addr == "" {
				addr = cfg.Serve.Addr
			}
			if owner == "" {
				owner = cfg.Owner
			}

			st, err := store.Open(cfg.StorePath())
			if err != nil {
				ui.Bad.Printf("  Failed to open store: %v\n", err)
				os.Exit(1)
			}
			defer st.Close()

			srv := serve.New(st, serve.Options{
				Addr:   addr,
				Owner:  owner,
				Editor: cfg.EditorSettings(),
			})

			ui.Banner("serve")
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Listen"), addr)
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Owner"), owner)
			fmt.Printf("  %s  %s\n", ui.Brand.Sprintf("%-8s", "Store"), st.Path())
			fmt.Println()
			ui.Subtle.Println("  Press Ctrl+C to stop")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ListenAndServe(ctx); err != nil {
				ui.Bad.Printf("  %v\n", err)
				st.Close()
				os.Exit(1)
			}
			fmt.Println()
			ui.Good.Printf("  %s Server stopped\n", ui.StatusIcon(true))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id for saved funnels (default from config)")
	return cmd
}
