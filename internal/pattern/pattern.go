// Package pattern compiles user-supplied quad patterns (watchers' positive
// patterns and NAC sub-patterns, and one-shot query patterns) into the
// internal form the match engine and query path both operate on: a
// per-slot shape, an all-literal flag, a discriminating-field choice for
// selective activation, and a variable-consistency table.
package pattern

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/ripple/internal/store"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

// ErrInvalidQuad is returned for malformed patterns: an empty pattern
// list, or (for NAC) a variable appearing in the NAC that is never bound
// by a positive pattern.
var ErrInvalidQuad = errors.New("invalid quad pattern")

// Shape is the per-slot classification the compiler assigns.
type Shape byte

const (
	ShapeLiteral Shape = iota
	ShapeVariable
	ShapeWildcard
)

// Atom is one compiled pattern slot.
type Atom struct {
	Shape   Shape
	Literal value.Value // valid when Shape == ShapeLiteral
	VarName string      // valid when Shape == ShapeVariable
}

func compileAtom(v value.Value) Atom {
	switch {
	case value.IsVariable(v):
		return Atom{Shape: ShapeVariable, VarName: v.(value.Variable).Name}
	case value.IsWildcard(v):
		return Atom{Shape: ShapeWildcard}
	default:
		return Atom{Shape: ShapeLiteral, Literal: v}
	}
}

// QuadPattern is one compiled pattern-quad: four atoms plus the all-literal
// flag used to route it to a point-lookup (query and NAC evaluation).
type QuadPattern struct {
	Slots      [4]Atom
	AllLiteral bool
}

// CompileQuadPattern compiles a single (E,A,V,C) pattern-quad.
func CompileQuadPattern(e, a, v, c value.Value) QuadPattern {
	qp := QuadPattern{Slots: [4]Atom{
		store.SlotEntity:    compileAtom(e),
		store.SlotAttribute: compileAtom(a),
		store.SlotValue:     compileAtom(v),
		store.SlotContext:   compileAtom(c),
	}}
	qp.AllLiteral = true
	for _, atom := range qp.Slots {
		if atom.Shape != ShapeLiteral {
			qp.AllLiteral = false
			break
		}
	}
	return qp
}

// Position names one occurrence of a variable: which pattern-quad, which
// slot.
type Position struct {
	PatternIndex int
	Slot         store.Slot
}

// ActivationKey is the watcher's selective-activation routing key: either
// a (slot, literal) pair taken from the first pattern-quad, or the
// wildcard marker when the first pattern-quad has no literal slot.
type ActivationKey struct {
	IsWildcard bool
	Slot       store.Slot
	Literal    value.Value
}

// chooseActivationKey picks the leftmost literal slot of the first
// pattern-quad, priority entity > attribute > value > context.
func chooseActivationKey(first QuadPattern) ActivationKey {
	for _, slot := range []store.Slot{store.SlotEntity, store.SlotAttribute, store.SlotValue, store.SlotContext} {
		atom := first.Slots[slot]
		if atom.Shape == ShapeLiteral {
			return ActivationKey{Slot: slot, Literal: atom.Literal}
		}
	}
	return ActivationKey{IsWildcard: true}
}

// Watcher is a compiled, standing registration: positive pattern-quads,
// optional NAC pattern-quads, the activation key, and the
// variable-consistency table. Its production is held by the engine,
// keyed by ID. Unwatch removes it from the registry
// outright, so queued-but-undrained work for it is simply never fed —
// Feed only ever consults watchers the registry still holds.
type Watcher struct {
	ID            uint64
	Positive      []QuadPattern
	NAC           []QuadPattern
	ActivationKey ActivationKey
	VarPositions  map[string][]Position
}

// Compile builds a Watcher from raw (E,A,V,C) pattern-quads. positive must
// be non-empty. Every variable used in nac must also be bound by some
// positive pattern-quad (NAC only vetoes; it never introduces a binding).
func Compile(id uint64, positive [][4]value.Value, nac [][4]value.Value) (*Watcher, error) {
	if len(positive) == 0 {
		return nil, fmt.Errorf("%w: watcher has no positive pattern-quads", ErrInvalidQuad)
	}

	w := &Watcher{ID: id, VarPositions: make(map[string][]Position)}
	for i, raw := range positive {
		qp := CompileQuadPattern(raw[0], raw[1], raw[2], raw[3])
		w.Positive = append(w.Positive, qp)
		for slot, atom := range qp.Slots {
			if atom.Shape == ShapeVariable {
				w.VarPositions[atom.VarName] = append(w.VarPositions[atom.VarName], Position{PatternIndex: i, Slot: store.Slot(slot)})
			}
		}
	}

	for _, raw := range nac {
		qp := CompileQuadPattern(raw[0], raw[1], raw[2], raw[3])
		for _, atom := range qp.Slots {
			if atom.Shape == ShapeVariable {
				if _, bound := w.VarPositions[atom.VarName]; !bound {
					return nil, fmt.Errorf("%w: NAC variable %q is never bound by a positive pattern", ErrInvalidQuad, atom.VarName)
				}
			}
		}
		w.NAC = append(w.NAC, qp)
	}

	w.ActivationKey = chooseActivationKey(w.Positive[0])
	return w, nil
}

// Bindings is a partial or full variable binding map, shared by the match
// engine and the query path.
type Bindings map[string]value.Value

// Clone returns an independent copy of b.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merge attempts to combine b and other; returns the merged bindings and
// true if every variable shared by both maps to the same value (spec
// BINDING-UNIQUE).
func (b Bindings) Merge(other Bindings) (Bindings, bool) {
	merged := b.Clone()
	for k, v := range other {
		if existing, ok := merged[k]; ok {
			if !value.Equal(existing, v) {
				return nil, false
			}
			continue
		}
		merged[k] = v
	}
	return merged, true
}

// Signature returns the canonical binding signature used for AT-MOST-ONCE
// bookkeeping: variables in alphabetical order, values replaced by their
// hash (spec §9).
func (b Bindings) Signature(vars []string) string {
	names := make([]string, len(vars))
	copy(names, vars)
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		if v, ok := b[name]; ok {
			sb.WriteString(strconv.FormatUint(value.Hash(v), 16))
		} else {
			sb.WriteString("?")
		}
	}
	return sb.String()
}

// Unify attempts to match a stored quad against a single pattern-quad,
// returning the single-pattern binding produced (only the variables that
// occur in this pattern-quad) or ok=false on any literal mismatch.
func Unify(qp QuadPattern, q *store.Quad) (Bindings, bool) {
	b := make(Bindings)
	for slot, atom := range qp.Slots {
		slotVal := q.Slot(store.Slot(slot))
		switch atom.Shape {
		case ShapeLiteral:
			if !value.Equal(atom.Literal, slotVal) {
				return nil, false
			}
		case ShapeWildcard:
			// matches anything, binds nothing
		case ShapeVariable:
			if existing, ok := b[atom.VarName]; ok {
				if !value.Equal(existing, slotVal) {
					return nil, false
				}
			} else {
				b[atom.VarName] = slotVal
			}
		}
	}
	return b, true
}

// Substitute instantiates a pattern-quad's literal/variable slots against
// bindings, producing a concrete quad literal usable as an Add or a point
// query. Returns ok=false if some variable slot is unbound (the pattern
// is not fully groundable under these bindings) or if the pattern
// contains a wildcard slot (wildcards never appear in an instantiation
// target since they bind nothing to substitute).
func Substitute(qp QuadPattern, b Bindings) (e, a, v, c value.Value, ok bool) {
	out := make([]value.Value, 4)
	for slot, atom := range qp.Slots {
		switch atom.Shape {
		case ShapeLiteral:
			out[slot] = atom.Literal
		case ShapeVariable:
			val, bound := b[atom.VarName]
			if !bound {
				return nil, nil, nil, nil, false
			}
			out[slot] = val
		case ShapeWildcard:
			return nil, nil, nil, nil, false
		}
	}
	return out[store.SlotEntity], out[store.SlotAttribute], out[store.SlotValue], out[store.SlotContext], true
}

// Ground substitutes every variable atom of qp with a literal atom taken
// from b, leaving literal and wildcard atoms untouched. NACSatisfied uses
// it to turn a NAC sub-pattern into a pattern with no variables left.
// Returns ok=false if qp contains a variable absent from b; a grounded
// pattern never keeps a variable.
func Ground(qp QuadPattern, b Bindings) (QuadPattern, bool) {
	grounded := qp
	for slot, atom := range qp.Slots {
		if atom.Shape != ShapeVariable {
			continue
		}
		val, ok := b[atom.VarName]
		if !ok {
			return QuadPattern{}, false
		}
		grounded.Slots[slot] = Atom{Shape: ShapeLiteral, Literal: val}
	}
	grounded.AllLiteral = true
	for _, atom := range grounded.Slots {
		if atom.Shape != ShapeLiteral {
			grounded.AllLiteral = false
			break
		}
	}
	return grounded, true
}

// MostSelectiveSlot picks the first literal slot of qp in priority order
// entity > attribute > value > context, for use as an index lookup key.
// ok is false when qp has no literal slot at all (full scan required).
func MostSelectiveSlot(qp QuadPattern) (slot store.Slot, literal value.Value, ok bool) {
	for _, s := range []store.Slot{store.SlotEntity, store.SlotAttribute, store.SlotValue, store.SlotContext} {
		if atom := qp.Slots[s]; atom.Shape == ShapeLiteral {
			return s, atom.Literal, true
		}
	}
	return 0, nil, false
}

// Matches reports whether a stored quad satisfies qp: every literal slot
// equals the quad's slot, every wildcard slot passes unconditionally, and
// every variable slot is internally consistent (repeated variables in qp
// must take the same value in q). It does not return bindings; use Unify
// when the bindings themselves are needed.
func Matches(qp QuadPattern, q *store.Quad) bool {
	_, ok := Unify(qp, q)
	return ok
}

// NACSatisfied reports whether any quad currently in the store matches
// some NAC sub-pattern once grounded with b. Both the match engine's
// completion check (§4.E) and the one-shot query path (§4.G) call this
// identically: substitute the binding in, pick the most selective
// literal slot as the index lookup key (or fall back to a full scan),
// and look for a single matching quad. A NAC pattern whose variables
// cannot all be grounded by b is skipped rather than treated as a veto,
// since NAC never introduces a binding of its own.
func NACSatisfied(s *store.Store, nac []QuadPattern, b Bindings) bool {
	for _, qp := range nac {
		grounded, ok := Ground(qp, b)
		if !ok {
			continue
		}
		var candidates []*store.Quad
		if slot, literal, ok := MostSelectiveSlot(grounded); ok {
			candidates = s.GetBySlot(slot, literal)
		} else {
			candidates = s.AllQuads()
		}
		for _, q := range candidates {
			if Matches(grounded, q) {
				return true
			}
		}
	}
	return false
}

// VarNames returns every variable name the watcher's positive patterns
// bind, in a stable (sorted) order.
func (w *Watcher) VarNames() []string {
	names := make([]string, 0, len(w.VarPositions))
	for name := range w.VarPositions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
