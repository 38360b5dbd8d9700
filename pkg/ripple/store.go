// Package ripple is the public facade over the reactive quad-store: a
// single Store type that wires the store, pattern compiler, watcher
// registry, match engine and scheduler together (spec §4.H). Everything
// below internal/ is invisible from here on; callers only ever see
// pkg/value.Value, pkg/ripple.Store and the few small public types this
// package defines.
package ripple

import (
	"fmt"

	"github.com/aleksaelezovic/ripple/internal/engine"
	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/internal/query"
	"github.com/aleksaelezovic/ripple/internal/registry"
	"github.com/aleksaelezovic/ripple/internal/scheduler"
	"github.com/aleksaelezovic/ripple/internal/store"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

// Unspecified requests an auto-generated "edge:N" context from Add.
var Unspecified value.Value = store.Unspecified

// Quad is a read-only view of a stored quad, returned by Edges and
// GetByContext.
type Quad struct {
	Entity, Attribute, Value, Context value.Value
}

func fromStoreQuad(q *store.Quad) Quad {
	return Quad{
		Entity:    q.Slot(store.SlotEntity),
		Attribute: q.Slot(store.SlotAttribute),
		Value:     q.Slot(store.SlotValue),
		Context:   q.Slot(store.SlotContext),
	}
}

// QuadLiteral is an alias of engine.QuadLiteral, the shape a Production
// returns to request further inserts.
type QuadLiteral = engine.QuadLiteral

// Production is the callback a Watch call invokes once per distinct
// complete binding.
type Production = engine.Production

// Interceptor is a pre-insert hook: it sees a quad about to be committed
// and the store it would land in, and returns false to block the insert.
// An Interceptor is registered against one literal value and only runs
// for quads where that value appears in some slot (spec component I).
type Interceptor func(e, a, v, c value.Value, s *Store) bool

// Store is the public facade. Zero value is not usable; construct with
// New.
type Store struct {
	store     *store.Store
	registry  *registry.Registry
	engine    *engine.Engine
	scheduler *scheduler.Scheduler

	nextWatcherID uint64
	interceptors  map[uint64][]Interceptor
}

// New creates an empty Store.
func New() *Store {
	st := store.New()
	reg := registry.New()

	s := &Store{
		store:        st,
		registry:     reg,
		interceptors: make(map[uint64][]Interceptor),
	}
	s.engine = engine.New(st, reg, s)
	s.scheduler = scheduler.New(s.engine, st)
	st.OnInsert = func(q *store.Quad) { s.scheduler.Enqueue(q) }
	return s
}

// InterceptOn registers fn to run before any quad whose entity,
// attribute, value or context slot equals v is committed. Installing an
// interceptor never re-evaluates quads already in the store.
func (s *Store) InterceptOn(v value.Value, fn Interceptor) {
	key := value.Hash(v)
	s.interceptors[key] = append(s.interceptors[key], fn)
}

func (s *Store) interceptorsAllow(e, a, v, c value.Value) bool {
	seen := make(map[uint64]bool, 4)
	allowed := true
	for _, slotVal := range [4]value.Value{e, a, v, c} {
		h := value.Hash(slotVal)
		if seen[h] {
			continue
		}
		seen[h] = true
		for _, fn := range s.interceptors[h] {
			if !fn(e, a, v, c, s) {
				allowed = false
			}
		}
	}
	return allowed
}

// Add inserts (e, a, v, c), running any applicable interceptors first and
// then the full cascade of watcher productions before returning (unless
// called from inside a Batch body, where draining is deferred until the
// batch completes). c may be Unspecified to request an auto-generated
// context.
//
// Returns the context actually used, whether the quad was newly inserted
// (false for a duplicate or an interceptor-blocked insert), and any
// *ProductionError raised by the resulting cascade.
func (s *Store) Add(e, a, v, c value.Value) (context value.Value, isNew bool, err error) {
	resolved := c
	if c == Unspecified {
		resolved = value.Symbol(s.store.PeekNextEdge())
	} else if s.store.Contains(e, a, v, c) {
		return c, false, nil
	}

	if !s.interceptorsAllow(e, a, v, resolved) {
		return resolved, false, nil
	}

	ctx, isNew, _, err := s.store.Add(e, a, v, c)
	if err != nil {
		return nil, false, err
	}
	if derr := s.scheduler.Drain(); derr != nil {
		return ctx, isNew, derr
	}
	return ctx, isNew, nil
}

// Remove deletes (e, a, v, c) if present. It does not retract any
// production already fired on account of it (spec §9, resolved
// monotonic: the engine keeps no truth-maintenance layer).
func (s *Store) Remove(e, a, v, c value.Value) bool {
	return s.store.Remove(e, a, v, c)
}

// Contains reports whether (e, a, v, c) is currently stored.
func (s *Store) Contains(e, a, v, c value.Value) bool {
	return s.store.Contains(e, a, v, c)
}

// Query performs a one-shot join over patterns, filters out any binding
// that satisfies a nac sub-pattern, and returns every distinct surviving
// binding. Unlike Watch, this leaves no standing state. nac may be nil.
func (s *Store) Query(patterns [][4]value.Value, nac [][4]value.Value) ([]pattern.Bindings, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("query: at least one pattern-quad is required")
	}
	return query.Run(s.store, query.CompileAll(patterns), query.CompileAll(nac)), nil
}

// Watch compiles and installs a standing watcher: positive pattern-quads
// it must see satisfied, an optional set of NAC pattern-quads that veto
// firing, and the production to run once per distinct complete binding.
// Data already in the store is scanned immediately so the watcher finds
// matches that predate it (order-independence).
func (s *Store) Watch(positive, nac [][4]value.Value, production Production) (uint64, error) {
	s.nextWatcherID++
	id := s.nextWatcherID

	w, err := pattern.Compile(id, positive, nac)
	if err != nil {
		s.nextWatcherID--
		return 0, err
	}

	s.registry.Install(w)
	s.engine.RegisterProduction(id, production)
	s.engine.InstallScan(w)
	return id, nil
}

// Unwatch removes a previously installed watcher and its match state.
// Removing an unknown id is a no-op that reports false.
func (s *Store) Unwatch(id uint64) bool {
	w, ok := s.registry.Uninstall(id)
	if !ok {
		return false
	}
	s.engine.Forget(w.ID)
	return true
}

// Batch runs fn with cascade draining deferred until fn returns: every
// Add inside fn only enqueues work, nothing fires until the body
// completes. If fn returns a non-nil error, or any production inside the
// resulting cascade raises, the store and every watcher's match state are
// rolled back to exactly how they stood before Batch started.
func (s *Store) Batch(fn func(*Store) error) error {
	return s.scheduler.Batch(func() error { return fn(s) })
}

// ListContexts returns every distinct context currently in use.
func (s *Store) ListContexts() []value.Value {
	return s.store.ListContexts()
}

// GetByContext returns every quad filed under context c.
func (s *Store) GetByContext(c value.Value) []Quad {
	quads := s.store.GetByContext(c)
	out := make([]Quad, len(quads))
	for i, q := range quads {
		out[i] = fromStoreQuad(q)
	}
	return out
}

// Size returns the number of distinct quads currently stored.
func (s *Store) Size() int {
	return s.store.Size()
}

// Edges returns every quad in the store, in no particular order.
func (s *Store) Edges() []Quad {
	quads := s.store.Edges()
	out := make([]Quad, len(quads))
	for i, q := range quads {
		out[i] = fromStoreQuad(q)
	}
	return out
}
