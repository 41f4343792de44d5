package main

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"pkg.world.dev/duel/tui"
)

const dialTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var url, name string
	cmd := &cobra.Command{
		Use:          "duel-tui",
		Short:        "Terminal client for the duel server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := tui.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("url") {
				cfg.URL = url
			}
			if cmd.Flags().Changed("name") {
				cfg.Name = name
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&url, "url", tui.DefaultURL, "websocket endpoint of the server (DUEL_URL)")
	cmd.Flags().StringVar(&name, "name", "", "display name; asked for on start when empty (DUEL_NAME)")
	return cmd
}

func run(ctx context.Context, cfg tui.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := tui.Dial(dialCtx, cfg.URL)
	if err != nil {
		return err
	}
	defer client.Close()

	model := tui.NewModel(client, client.Listen(), cfg.Name)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return eris.Wrap(err, "client exited")
	}
	return nil
}
