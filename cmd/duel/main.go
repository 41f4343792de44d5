package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pkg.world.dev/duel"
	"pkg.world.dev/duel/card"
	"pkg.world.dev/duel/config"
	dlog "pkg.world.dev/duel/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "duel",
		Short:         "Two player card duel server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newCardsCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := dlog.Setup(cfg.LogLevel, cfg.LogPretty); err != nil {
				return err
			}

			d, err := duel.New(duel.WithConfig(*cfg))
			if err != nil {
				log.Error().Err(err).Msg("failed to create duel server")
				return err
			}
			log.Info().
				Str("port", cfg.Port).
				Dur("tick_interval", cfg.TickInterval).
				Int("cards", d.Cards().Len()).
				Msg("Starting duel server")
			return d.Start()
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newCardsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Print the card set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				set *card.Set
				err error
			)
			if file == "" {
				set, err = card.Default()
			} else {
				set, err = card.LoadFile(file)
			}
			if err != nil {
				return err
			}
			return printCards(cmd, set)
		},
	}
	cmd.Flags().StringVar(&file, "card-file", "", "TOML card set, the embedded set is printed when empty")
	return cmd
}

func printCards(cmd *cobra.Command, set *card.Set) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tTYPE\tCOST\tPOWER\tTEXT")
	for _, def := range set.Definitions() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", def.Key, def.Name, def.Type, def.Cost, def.Power, def.Text)
	}
	fmt.Fprintf(tw, "\n%d cards, %d per deck\n", set.Len(), set.DeckSize())
	return tw.Flush()
}
