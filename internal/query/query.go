// Package query implements the one-shot read path: a multi-pattern join
// over the store that, unlike the match engine, does no bookkeeping and
// leaves no standing state (spec §4.G).
package query

import (
	"sort"

	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/internal/store"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

// Run joins every pattern-quad in patterns against the store and returns
// every distinct full binding whose NAC sub-patterns (if any) are all
// unsatisfied, in no particular order. An empty patterns list returns no
// bindings. NAC is evaluated identically to the match engine's
// completion check (pattern.NACSatisfied): substitute the full binding
// in, point-query the most selective index.
func Run(s *store.Store, patterns []pattern.QuadPattern, nac []pattern.QuadPattern) []pattern.Bindings {
	if len(patterns) == 0 {
		return nil
	}

	ordered := orderBySelectivity(patterns)

	var vars []string
	seenVar := make(map[string]bool)
	for _, qp := range ordered {
		for _, atom := range qp.Slots {
			if atom.Shape == pattern.ShapeVariable && !seenVar[atom.VarName] {
				seenVar[atom.VarName] = true
				vars = append(vars, atom.VarName)
			}
		}
	}
	sort.Strings(vars)

	results := join(s, ordered, 0, pattern.Bindings{})

	dedup := make(map[string]bool, len(results))
	out := results[:0]
	for _, b := range results {
		if pattern.NACSatisfied(s, nac, b) {
			continue
		}
		sig := b.Signature(vars)
		if dedup[sig] {
			continue
		}
		dedup[sig] = true
		out = append(out, b)
	}
	return out
}

// join recursively extends partial bindings one pattern-quad at a time.
// At each step the current bindings are grounded into the next
// pattern-quad (so variables already bound by earlier patterns act like
// literals), then candidates are fetched from the most selective index.
func join(s *store.Store, patterns []pattern.QuadPattern, i int, b pattern.Bindings) []pattern.Bindings {
	if i == len(patterns) {
		return []pattern.Bindings{b}
	}

	// Replace only the variables b already binds; the rest stay variables
	// for Unify to bind from each candidate quad.
	grounded := patterns[i]
	for slot, atom := range grounded.Slots {
		if atom.Shape != pattern.ShapeVariable {
			continue
		}
		if val, ok := b[atom.VarName]; ok {
			grounded.Slots[slot] = pattern.Atom{Shape: pattern.ShapeLiteral, Literal: val}
		}
	}

	var candidates []*store.Quad
	if slot, literal, ok := pattern.MostSelectiveSlot(grounded); ok {
		candidates = s.GetBySlot(slot, literal)
	} else {
		candidates = s.AllQuads()
	}

	var out []pattern.Bindings
	for _, q := range candidates {
		step, ok := pattern.Unify(grounded, q)
		if !ok {
			continue
		}
		merged, ok := b.Merge(step)
		if !ok {
			continue
		}
		out = append(out, join(s, patterns, i+1, merged)...)
	}
	return out
}

// orderBySelectivity returns patterns reordered so the most constrained
// (most leading literal slots) pattern-quads are joined first, shrinking
// the candidate set as early as possible. Ties keep their original
// relative order.
func orderBySelectivity(patterns []pattern.QuadPattern) []pattern.QuadPattern {
	ordered := make([]pattern.QuadPattern, len(patterns))
	copy(ordered, patterns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return literalCount(ordered[i]) > literalCount(ordered[j])
	})
	return ordered
}

func literalCount(qp pattern.QuadPattern) int {
	n := 0
	for _, atom := range qp.Slots {
		if atom.Shape == pattern.ShapeLiteral {
			n++
		}
	}
	return n
}

// CompileAll compiles raw (E,A,V,C) pattern-quads for Run, mirroring
// pattern.CompileQuadPattern across a slice.
func CompileAll(raw [][4]value.Value) []pattern.QuadPattern {
	out := make([]pattern.QuadPattern, len(raw))
	for i, r := range raw {
		out[i] = pattern.CompileQuadPattern(r[0], r[1], r[2], r[3])
	}
	return out
}
