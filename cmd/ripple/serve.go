package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/ripple/pkg/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [addr]",
		Short: "Serve the --store snapshot over HTTP (default addr: localhost:8080).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := "localhost:8080"
			if len(args) == 1 {
				addr = args[0]
			}

			s, err := loadStore()
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d quads from %s\n", s.Size(), storePath)

			return server.New(s, addr).Start()
		},
	}
}
