package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/ripple/internal/engine"
	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/pkg/ripple"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a self-contained demo in an in-memory store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			runDemo()
			return nil
		},
	}
}

func runDemo() {
	fmt.Println("=== ripple quad-store demo ===")
	fmt.Println()

	s := ripple.New()

	fmt.Println("installing a watcher: (?p, type, person, *) !(?p, deleted, true, *)")
	_, err := s.Watch(
		[][4]value.Value{{value.Variable{Name: "p"}, value.Symbol("type"), value.Symbol("person"), value.Wildcard{}}},
		[][4]value.Value{{value.Variable{Name: "p"}, value.Symbol("deleted"), value.Bool(true), value.Wildcard{}}},
		func(b pattern.Bindings, _ engine.ProductionStore) []engine.QuadLiteral {
			fmt.Printf("  fired: %s is a person\n", b["p"])
			return []engine.QuadLiteral{
				{Entity: b["p"], Attribute: value.Symbol("greeted"), Value: value.Bool(true)},
			}
		},
	)
	if err != nil {
		fmt.Println("failed to install watcher:", err)
		return
	}

	fmt.Println()
	fmt.Println("inserting sample data...")
	inserts := [][4]value.Value{
		{value.Symbol("alice"), value.Symbol("type"), value.Symbol("person"), value.Symbol("c1")},
		{value.Symbol("alice"), value.Symbol("age"), value.Number(30), value.Symbol("c1")},
		{value.Symbol("bob"), value.Symbol("type"), value.Symbol("person"), value.Symbol("c2")},
		{value.Symbol("bob"), value.Symbol("deleted"), value.Bool(true), value.Symbol("c2")},
	}
	for _, q := range inserts {
		ctx, isNew, err := s.Add(q[0], q[1], q[2], q[3])
		if err != nil {
			fmt.Println("  insert failed:", err)
			continue
		}
		fmt.Printf("  (%s, %s, %s, %s) isNew=%v\n", q[0], q[1], q[2], ctx, isNew)
	}

	fmt.Println()
	fmt.Println("querying (?p, greeted, true, *)...")
	results, err := s.Query([][4]value.Value{{value.Variable{Name: "p"}, value.Symbol("greeted"), value.Bool(true), value.Wildcard{}}}, nil)
	if err != nil {
		fmt.Println("query failed:", err)
		return
	}
	for _, b := range results {
		fmt.Printf("  p=%s\n", b["p"])
	}
	fmt.Printf("total quads stored: %d\n", s.Size())
}
