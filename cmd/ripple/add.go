package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/ripple/pkg/surface"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <quad-literal>",
		Short: "Insert a quad literal into the --store snapshot, e.g. \"(alice, age, 30, c1)\".",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, a, v, c, err := surface.ParseQuad(strings.Join(args, " "))
			if err != nil {
				return err
			}

			s, err := loadStore()
			if err != nil {
				return err
			}

			ctx, isNew, err := s.Add(e, a, v, c)
			if err != nil {
				return err
			}
			if err := saveStore(s); err != nil {
				return err
			}

			fmt.Printf("(%s, %s, %s, %s) isNew=%v\n", e, a, v, ctx, isNew)
			return nil
		},
	}
}
