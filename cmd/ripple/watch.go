package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/ripple/internal/engine"
	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/pkg/surface"
)

var watchNAC string

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <pattern-literal>",
		Short: "Install a watcher against the --store snapshot and report any immediate matches.",
		Long: "Installs a watcher against the --store snapshot's existing data and prints every " +
			"binding its install scan finds. Since this process exits immediately afterward, it only " +
			"demonstrates the order-independence guarantee against data already on disk, not live firing " +
			"on future inserts — pair it with repeated `ripple add` calls against the same --store to see " +
			"that in practice.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positive, nac, err := surface.ParsePattern(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if watchNAC != "" {
				extraNAC, err := surface.ParsePatternQuad(watchNAC)
				if err != nil {
					return err
				}
				nac = append(nac, extraNAC)
			}

			s, err := loadStore()
			if err != nil {
				return err
			}

			var fired []pattern.Bindings
			_, err = s.Watch(positive, nac, func(b pattern.Bindings, _ engine.ProductionStore) []engine.QuadLiteral {
				fired = append(fired, b)
				return nil
			})
			if err != nil {
				return err
			}

			if err := saveStore(s); err != nil {
				return err
			}

			printBindings(fired)
			return nil
		},
	}
	cmd.Flags().StringVar(&watchNAC, "nac", "", "additional NAC pattern-quad, e.g. \"(?p, deleted, true, *)\"")
	return cmd
}
