// Package engine implements the incremental match engine: it takes one
// freshly inserted quad plus the registry's candidate watchers for it and
// advances each candidate's partial matches, firing productions at most
// once per distinct complete binding (spec §4.E).
package engine

import (
	"fmt"

	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/internal/registry"
	"github.com/aleksaelezovic/ripple/internal/store"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

// QuadLiteral is one fully-grounded quad a Production asks to have
// inserted. Context may be nil (store.Unspecified) to request
// auto-generation.
type QuadLiteral struct {
	Entity, Attribute, Value, Context value.Value
}

// ProductionStore is the narrow surface a Production gets to read and
// write the store through. pkg/ripple's facade implements it; engine
// never imports pkg/ripple, avoiding an import cycle (spec §1's "core
// depends on nothing outside itself" boundary).
type ProductionStore interface {
	Add(e, a, v, c value.Value) (context value.Value, isNew bool, err error)
	Contains(e, a, v, c value.Value) bool
	Query(patterns [][4]value.Value, nac [][4]value.Value) ([]pattern.Bindings, error)
}

// Production is the callback a watcher fires once per distinct complete
// binding: given the binding and a handle on the store, it returns the
// quads to insert as a consequence.
type Production func(b pattern.Bindings, s ProductionStore) []QuadLiteral

// ProductionError wraps a panic raised by a Production. The scheduler
// recovers it at the top of Drain and returns it from the triggering
// Add/Batch call (spec §7).
type ProductionError struct {
	WatcherID uint64
	Cause     any
}

func (e *ProductionError) Error() string {
	return fmt.Sprintf("production for watcher %d raised: %v", e.WatcherID, e.Cause)
}

type partialMatch struct {
	bindings  pattern.Bindings
	satisfied uint64 // bitmask over pattern-quad indices already matched
}

// matchState is the per-watcher working set: its partial matches, a
// dedup guard so re-feeding the same quad never duplicates a partial, and
// the set of binding signatures that have already fired (AT-MOST-ONCE).
type matchState struct {
	partials    []partialMatch
	partialSeen map[string]bool
	fired       map[string]bool
}

func newMatchState() *matchState {
	return &matchState{
		partialSeen: make(map[string]bool),
		fired:       make(map[string]bool),
	}
}

// Engine advances watchers' partial matches as quads arrive and invokes
// their productions.
type Engine struct {
	store       *store.Store
	registry    *registry.Registry
	productions map[uint64]Production
	states      map[uint64]*matchState
	facade      ProductionStore
}

// New creates an Engine over store s and registry r. facade is passed
// through to every Production invocation; it is normally the pkg/ripple
// Store that owns both s and r.
func New(s *store.Store, r *registry.Registry, facade ProductionStore) *Engine {
	return &Engine{
		store:       s,
		registry:    r,
		productions: make(map[uint64]Production),
		states:      make(map[uint64]*matchState),
		facade:      facade,
	}
}

// RegisterProduction associates a production with an already-installed
// watcher id. Watchers with no registered production simply never fire
// (useful for NAC-only diagnostics or tests).
func (e *Engine) RegisterProduction(watcherID uint64, p Production) {
	e.productions[watcherID] = p
}

func (e *Engine) state(watcherID uint64) *matchState {
	st, ok := e.states[watcherID]
	if !ok {
		st = newMatchState()
		e.states[watcherID] = st
	}
	return st
}

// Forget drops a watcher's match state, called when it is uninstalled.
func (e *Engine) Forget(watcherID uint64) {
	delete(e.states, watcherID)
	delete(e.productions, watcherID)
}

func fullMask(n int) uint64 {
	if n >= 64 {
		n = 63
	}
	return (uint64(1) << uint(n)) - 1
}

// Feed advances every candidate watcher for q. It is called once per
// inserted quad, synchronously, before the next queued item is drained.
func (e *Engine) Feed(q *store.Quad) {
	for _, w := range e.registry.CandidateWatchers(q) {
		e.processQuadForWatcher(w, q)
	}
}

// processQuadForWatcher runs steps 1-3 of the match algorithm for a
// single (watcher, quad) pair: direct extension, extending existing
// partial matches, and seeding new ones.
func (e *Engine) processQuadForWatcher(w *pattern.Watcher, q *store.Quad) {
	st := e.state(w.ID)
	full := fullMask(len(w.Positive))

	type direct struct {
		idx     int
		binding pattern.Bindings
	}
	var directs []direct
	for i, p := range w.Positive {
		if b, ok := pattern.Unify(p, q); ok {
			directs = append(directs, direct{i, b})
		}
	}
	if len(directs) == 0 {
		return
	}

	// Step 2: extend a snapshot of the partials that existed before this
	// quad arrived. Snapshotting first keeps this pass from chaining onto
	// partials the same quad itself just created.
	existing := make([]partialMatch, len(st.partials))
	copy(existing, st.partials)
	for _, pm := range existing {
		for _, d := range directs {
			bit := uint64(1) << uint(d.idx)
			if pm.satisfied&bit != 0 {
				continue
			}
			merged, ok := pm.bindings.Merge(d.binding)
			if !ok {
				continue
			}
			newSatisfied := pm.satisfied | bit
			if newSatisfied == full {
				e.tryComplete(w, st, merged)
			} else {
				e.registerPartial(st, w, merged, newSatisfied)
			}
		}
	}

	// Step 3: seed a new partial match (or, for a single-pattern watcher,
	// go straight to completion) from each direct match on its own.
	for _, d := range directs {
		bit := uint64(1) << uint(d.idx)
		if bit == full {
			e.tryComplete(w, st, d.binding)
			continue
		}
		e.registerPartial(st, w, d.binding, bit)
	}
}

func (e *Engine) registerPartial(st *matchState, w *pattern.Watcher, b pattern.Bindings, satisfied uint64) {
	key := partialKey(satisfied, b, w)
	if st.partialSeen[key] {
		return
	}
	st.partialSeen[key] = true
	st.partials = append(st.partials, partialMatch{bindings: b, satisfied: satisfied})
}

func partialKey(satisfied uint64, b pattern.Bindings, w *pattern.Watcher) string {
	return fmt.Sprintf("%d|%s", satisfied, b.Signature(w.VarNames()))
}

// tryComplete runs steps 4-5: the NAC veto check, then AT-MOST-ONCE
// dedup, then firing the production.
func (e *Engine) tryComplete(w *pattern.Watcher, st *matchState, b pattern.Bindings) {
	if pattern.NACSatisfied(e.store, w.NAC, b) {
		return
	}

	sig := b.Signature(w.VarNames())
	if st.fired[sig] {
		return
	}
	st.fired[sig] = true

	e.fire(w, b)
}

// fire invokes w's production, rolling back any store mutations it
// caused if it panics (or if one of its returned quads fails validation)
// and re-panicking a *ProductionError for the scheduler to catch. The
// binding signature stays marked fired either way: a production that
// raised is not retried on a later identical binding.
func (e *Engine) fire(w *pattern.Watcher, b pattern.Bindings) {
	prod, ok := e.productions[w.ID]
	if !ok {
		return
	}

	snap := e.store.Snapshot()
	defer func() {
		if r := recover(); r != nil {
			e.store.Restore(snap)
			panic(&ProductionError{WatcherID: w.ID, Cause: r})
		}
	}()

	for _, ql := range prod(b, e.facade) {
		if _, _, err := e.facade.Add(ql.Entity, ql.Attribute, ql.Value, ql.Context); err != nil {
			panic(err)
		}
	}
}

// InstallScan feeds w every quad already in the store that could satisfy
// one of its pattern-quads, in store insertion order, so a watcher
// installed after data already exists still finds matches that predate
// it (spec §4.D / testable property "order-independence").
func (e *Engine) InstallScan(w *pattern.Watcher) {
	seen := make(map[*store.Quad]bool)
	for _, p := range w.Positive {
		var candidates []*store.Quad
		if slot, literal, ok := pattern.MostSelectiveSlot(p); ok {
			candidates = e.store.GetBySlot(slot, literal)
		} else {
			candidates = e.store.AllQuads()
		}
		for _, q := range candidates {
			if seen[q] {
				continue
			}
			seen[q] = true
			e.processQuadForWatcher(w, q)
		}
	}
}

// Snapshot captures every watcher's match state, for Batch rollback.
type Snapshot struct {
	states map[uint64]*matchState
}

// Snapshot returns a deep copy of the engine's per-watcher match state.
func (e *Engine) Snapshot() *Snapshot {
	cp := make(map[uint64]*matchState, len(e.states))
	for id, st := range e.states {
		partials := make([]partialMatch, len(st.partials))
		copy(partials, st.partials)
		partialSeen := make(map[string]bool, len(st.partialSeen))
		for k, v := range st.partialSeen {
			partialSeen[k] = v
		}
		fired := make(map[string]bool, len(st.fired))
		for k, v := range st.fired {
			fired[k] = v
		}
		cp[id] = &matchState{partials: partials, partialSeen: partialSeen, fired: fired}
	}
	return &Snapshot{states: cp}
}

// Restore rolls every watcher's match state back to a previously captured
// Snapshot. Watchers installed after the snapshot was taken are dropped
// (their state never existed at snapshot time), matching the store
// rollback's "undo everything since" semantics.
func (e *Engine) Restore(snap *Snapshot) {
	e.states = snap.states
}
