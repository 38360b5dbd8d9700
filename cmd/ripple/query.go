package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/pkg/surface"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <pattern-literal>",
		Short: "Run a one-shot query against the --store snapshot, e.g. \"(?p, age, ?a, *)\".",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positive, nac, err := surface.ParsePattern(strings.Join(args, " "))
			if err != nil {
				return err
			}

			s, err := loadStore()
			if err != nil {
				return err
			}

			results, err := s.Query(positive, nac)
			if err != nil {
				return err
			}
			printBindings(results)
			return nil
		},
	}
}

func printBindings(results []pattern.Bindings) {
	if len(results) == 0 {
		fmt.Println("no matches")
		return
	}
	for _, b := range results {
		names := make([]string, 0, len(b))
		for name := range b {
			names = append(names, name)
		}
		sort.Strings(names)

		pairs := make([]string, len(names))
		for i, name := range names {
			pairs[i] = fmt.Sprintf("%s=%s", name, b[name])
		}
		fmt.Println(strings.Join(pairs, " "))
	}
}
