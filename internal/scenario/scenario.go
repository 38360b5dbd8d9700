// Package scenario replays the end-to-end scenarios from spec §8 against
// a real Store, once with the watcher installed before its data and once
// after, mechanically checking the order-independence testable property
// instead of asserting it by hand in every test file. Adapted from the
// teacher's manifest → test-case → run idiom (internal/testsuite), which
// loaded W3C SPARQL/Turtle conformance manifests; here the "manifest" is
// this package's own small Go-native table instead of a parsed file.
package scenario

import (
	"github.com/aleksaelezovic/ripple/internal/engine"
	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/pkg/ripple"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

// Case describes one scenario: a watcher (positive pattern plus optional
// NAC), a sequence of quads to insert, and the full multiset of bindings
// its production should have recorded once every insert has landed,
// regardless of whether the watcher was installed before or after them.
type Case struct {
	Name     string
	Positive [][4]value.Value
	NAC      [][4]value.Value
	Inserts  [][4]value.Value
	Vars     []string
	Want     []pattern.Bindings
}

func sym(s string) value.Value  { return value.Symbol(s) }
func num(n float64) value.Value { return value.Number(n) }
func txt(s string) value.Value  { return value.Text(s) }
func vr(name string) value.Value { return value.Variable{Name: name} }
func wc() value.Value           { return value.Wildcard{} }

// Cases holds §8's S1, S3, S4 and S6. S2's cascade and S5's batch
// rollback assert on store side effects rather than a recorded-bindings
// multiset and are exercised directly in scenario_test.go instead.
var Cases = []Case{
	{
		Name:     "S1 single-pattern match",
		Positive: [][4]value.Value{{vr("p"), sym("age"), vr("a"), wc()}},
		Inserts: [][4]value.Value{
			{sym("alice"), sym("age"), num(30), sym("c1")},
			{sym("bob"), sym("name"), txt("Bob"), sym("c1")},
		},
		Vars: []string{"p", "a"},
		Want: []pattern.Bindings{{"p": sym("alice"), "a": num(30)}},
	},
	{
		Name:     "S3 NAC before completion",
		Positive: [][4]value.Value{{vr("p"), sym("type"), sym("person"), wc()}},
		NAC:      [][4]value.Value{{vr("p"), sym("deleted"), value.Bool(true), wc()}},
		Inserts: [][4]value.Value{
			{sym("bob"), sym("deleted"), value.Bool(true), sym("c1")},
			{sym("bob"), sym("type"), sym("person"), sym("c2")},
			{sym("alice"), sym("type"), sym("person"), sym("c3")},
		},
		Vars: []string{"p"},
		Want: []pattern.Bindings{{"p": sym("alice")}},
	},
	{
		Name: "S4 multi-quad join",
		Positive: [][4]value.Value{
			{vr("x"), sym("likes"), vr("y"), wc()},
			{vr("y"), sym("likes"), vr("x"), wc()},
		},
		Inserts: [][4]value.Value{
			{sym("alice"), sym("likes"), sym("bob"), sym("c1")},
			{sym("bob"), sym("likes"), sym("alice"), sym("c2")},
		},
		Vars: []string{"x", "y"},
		Want: []pattern.Bindings{
			{"x": sym("alice"), "y": sym("bob")},
			{"x": sym("bob"), "y": sym("alice")},
		},
	},
	{
		Name:     "S6 order-independence (S1 repeated)",
		Positive: [][4]value.Value{{vr("p"), sym("age"), vr("a"), wc()}},
		Inserts: [][4]value.Value{
			{sym("alice"), sym("age"), num(30), sym("c1")},
		},
		Vars: []string{"p", "a"},
		Want: []pattern.Bindings{{"p": sym("alice"), "a": num(30)}},
	},
}

// Run replays c against a fresh Store, installing the watcher either
// before or after feeding c.Inserts, and returns the bindings its
// production recorded.
func Run(c Case, watcherFirst bool) ([]pattern.Bindings, error) {
	s := ripple.New()
	var recorded []pattern.Bindings
	record := func(b pattern.Bindings, _ engine.ProductionStore) []engine.QuadLiteral {
		recorded = append(recorded, b)
		return nil
	}

	install := func() error {
		_, err := s.Watch(c.Positive, c.NAC, record)
		return err
	}
	insert := func() error {
		for _, q := range c.Inserts {
			if _, _, err := s.Add(q[0], q[1], q[2], q[3]); err != nil {
				return err
			}
		}
		return nil
	}

	if watcherFirst {
		if err := install(); err != nil {
			return nil, err
		}
		if err := insert(); err != nil {
			return nil, err
		}
	} else {
		if err := insert(); err != nil {
			return nil, err
		}
		if err := install(); err != nil {
			return nil, err
		}
	}
	return recorded, nil
}

// Matches reports whether got and want hold the same multiset of
// bindings, compared over vars via their canonical signature so the
// comparison is order-insensitive.
func Matches(vars []string, got, want []pattern.Bindings) bool {
	toSet := func(bs []pattern.Bindings) map[string]int {
		set := make(map[string]int, len(bs))
		for _, b := range bs {
			set[b.Signature(vars)]++
		}
		return set
	}
	g, w := toSet(got), toSet(want)
	if len(g) != len(w) {
		return false
	}
	for k, n := range w {
		if g[k] != n {
			return false
		}
	}
	return true
}
