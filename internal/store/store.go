package store

import (
	"errors"
	"strconv"

	"github.com/aleksaelezovic/ripple/pkg/value"
)

// ErrInvalidQuad is returned when a slot value cannot be hashed (a
// Variable/Wildcard reaching the store, or a nil slot).
var ErrInvalidQuad = errors.New("invalid quad")

// orderedSet is an insertion-ordered set of quads, used for every index
// bucket so iteration order is deterministic (spec: "Sets are ordered by
// insertion sequence"). Membership is tracked by pointer identity so
// finding a quad to remove needs no linear Equal scan.
type orderedSet struct {
	order []*Quad
	pos   map[*Quad]int // quad pointer -> index in order
}

func newOrderedSet() *orderedSet {
	return &orderedSet{pos: make(map[*Quad]int)}
}

func (s *orderedSet) add(q *Quad) {
	s.pos[q] = len(s.order)
	s.order = append(s.order, q)
}

// remove deletes q and shifts every later element down by one, so the
// survivors keep their insertion order.
func (s *orderedSet) remove(q *Quad) {
	i, ok := s.pos[q]
	if !ok {
		return
	}
	s.order = append(s.order[:i], s.order[i+1:]...)
	for j := i; j < len(s.order); j++ {
		s.pos[s.order[j]] = j
	}
	delete(s.pos, q)
}

func (s *orderedSet) snapshot() []*Quad {
	out := make([]*Quad, len(s.order))
	copy(out, s.order)
	return out
}

// Store owns every quad and the four selective indexes over it.
type Store struct {
	byHash map[uint64][]*Quad // composite-hash bucket, handles hash collisions

	indexes [4]map[uint64]*orderedSet // one per Slot, keyed by slot-value hash
	all     *orderedSet               // every quad, insertion order; full-scan fallback

	nextSeq  uint64
	nextEdge uint64

	// OnInsert, if set, is called synchronously after a new quad is
	// committed to the store and before Add returns. The facade wires
	// this to the scheduler so that a successful insert enqueues a
	// "quad-inserted" work item (spec §4.B).
	OnInsert func(q *Quad)
}

// New creates an empty store.
func New() *Store {
	s := &Store{
		byHash: make(map[uint64][]*Quad),
		all:    newOrderedSet(),
	}
	for i := range s.indexes {
		s.indexes[i] = make(map[uint64]*orderedSet)
	}
	return s
}

// Unspecified is passed as the context argument to Add to request
// auto-context generation.
var Unspecified value.Value = nil

// Add inserts (E,A,V,C) if not already present. When c is Unspecified
// (nil), an auto-generated "edge:N" context is assigned. Returns the
// context actually used, whether the quad is new, and the stored quad
// (nil if the insert failed validation).
func (s *Store) Add(e, a, v, c value.Value) (context value.Value, isNew bool, q *Quad, err error) {
	if c == Unspecified {
		c = value.Symbol(s.autoContext())
	}

	candidate, err := NewQuad(e, a, v, c, s.nextSeq)
	if err != nil {
		return nil, false, nil, err
	}

	if existing := s.lookup(candidate); existing != nil {
		return existing.Context, false, existing, nil
	}

	s.nextSeq++
	s.commit(candidate)

	if s.OnInsert != nil {
		s.OnInsert(candidate)
	}

	return candidate.Context, true, candidate, nil
}

// autoContext returns the next "edge:N" string and advances the counter.
// The counter is captured by Snapshot and restored by Restore for Batch
// rollback.
func (s *Store) autoContext() string {
	n := s.nextEdge
	s.nextEdge++
	return edgeName(n)
}

// PeekNextEdge returns the "edge:N" string Add would assign right now for
// an Unspecified context, without consuming it. The facade uses this to
// show interceptors the context a candidate insert would get before the
// insert is actually committed.
func (s *Store) PeekNextEdge() string {
	return edgeName(s.nextEdge)
}

func edgeName(n uint64) string {
	return "edge:" + strconv.FormatUint(n, 10)
}

func (s *Store) lookup(q *Quad) *Quad {
	for _, existing := range s.byHash[q.hash] {
		if existing.Equal(q) {
			return existing
		}
	}
	return nil
}

func (s *Store) commit(q *Quad) {
	s.byHash[q.hash] = append(s.byHash[q.hash], q)
	s.all.add(q)
	for slot := Slot(0); slot < 4; slot++ {
		key := value.Hash(q.Slot(slot))
		set, ok := s.indexes[slot][key]
		if !ok {
			set = newOrderedSet()
			s.indexes[slot][key] = set
		}
		set.add(q)
	}
}

// Remove deletes the quad (E,A,V,C) if present. It does not retract
// already-fired productions (spec §9 open question, resolved monotonic).
func (s *Store) Remove(e, a, v, c value.Value) bool {
	probe, err := NewQuad(e, a, v, c, 0)
	if err != nil {
		return false
	}
	existing := s.lookup(probe)
	if existing == nil {
		return false
	}

	bucket := s.byHash[existing.hash]
	for i, q := range bucket {
		if q == existing {
			s.byHash[existing.hash] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(s.byHash[existing.hash]) == 0 {
		delete(s.byHash, existing.hash)
	}
	s.all.remove(existing)

	for slot := Slot(0); slot < 4; slot++ {
		key := value.Hash(existing.Slot(slot))
		if set, ok := s.indexes[slot][key]; ok {
			set.remove(existing)
			if len(set.order) == 0 {
				delete(s.indexes[slot], key)
			}
		}
	}
	return true
}

// Contains reports whether (E,A,V,C) is currently in the store.
func (s *Store) Contains(e, a, v, c value.Value) bool {
	probe, err := NewQuad(e, a, v, c, 0)
	if err != nil {
		return false
	}
	return s.lookup(probe) != nil
}

// GetBySlot returns the (insertion-ordered) bucket of quads whose slot
// equals v. It never scans the full store.
func (s *Store) GetBySlot(slot Slot, v value.Value) []*Quad {
	set, ok := s.indexes[slot][value.Hash(v)]
	if !ok {
		return nil
	}
	return set.snapshot()
}

// Size returns the number of distinct quads in the store.
func (s *Store) Size() int {
	n := 0
	for _, bucket := range s.byHash {
		n += len(bucket)
	}
	return n
}

// Edges returns every quad in the store, in no particular cross-bucket
// order (diagnostics only).
func (s *Store) Edges() []*Quad {
	out := make([]*Quad, 0, s.Size())
	for _, bucket := range s.byHash {
		out = append(out, bucket...)
	}
	return out
}

// AllQuads returns every quad in the store in insertion order. Unlike
// Edges, this is not diagnostics-only: the match engine uses it as the
// full-scan fallback when a NAC sub-pattern or a watcher-installation scan
// has no literal slot to index on.
func (s *Store) AllQuads() []*Quad {
	return s.all.snapshot()
}

// ListContexts returns every distinct context value seen by the context
// index (insertion order of first appearance per bucket map iteration is
// not guaranteed; callers needing determinism should sort).
func (s *Store) ListContexts() []value.Value {
	seen := make(map[uint64]value.Value)
	for key, set := range s.indexes[SlotContext] {
		if len(set.order) > 0 {
			seen[key] = set.order[0].Context
		}
	}
	out := make([]value.Value, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	return out
}

// GetByContext returns every quad whose context equals c, in insertion
// order.
func (s *Store) GetByContext(c value.Value) []*Quad {
	return s.GetBySlot(SlotContext, c)
}

// Snapshot captures enough state to roll the store back to this instant:
// the current edge counter and the current contents of every quad bucket
// (by hash). Restore reverses exactly that.
type Snapshot struct {
	nextSeq  uint64
	nextEdge uint64
	byHash   map[uint64][]*Quad
	indexes  [4]map[uint64]*orderedSet
	all      *orderedSet
}

// Snapshot returns a deep-enough copy of the store's mutable state for
// Batch to restore on rollback.
func (s *Store) Snapshot() *Snapshot {
	snap := &Snapshot{
		nextSeq:  s.nextSeq,
		nextEdge: s.nextEdge,
		byHash:   make(map[uint64][]*Quad, len(s.byHash)),
	}
	for h, bucket := range s.byHash {
		cp := make([]*Quad, len(bucket))
		copy(cp, bucket)
		snap.byHash[h] = cp
	}
	for slot := range s.indexes {
		snap.indexes[slot] = make(map[uint64]*orderedSet, len(s.indexes[slot]))
		for key, set := range s.indexes[slot] {
			cp := newOrderedSet()
			for _, q := range set.snapshot() {
				cp.add(q)
			}
			snap.indexes[slot][key] = cp
		}
	}
	snap.all = newOrderedSet()
	for _, q := range s.all.snapshot() {
		snap.all.add(q)
	}
	return snap
}

// Restore rolls the store back to a previously captured Snapshot.
func (s *Store) Restore(snap *Snapshot) {
	s.nextSeq = snap.nextSeq
	s.nextEdge = snap.nextEdge
	s.byHash = snap.byHash
	for slot := range snap.indexes {
		s.indexes[slot] = snap.indexes[slot]
	}
	s.all = snap.all
}
