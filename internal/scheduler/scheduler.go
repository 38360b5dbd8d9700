// Package scheduler owns the FIFO work queue that drives the match
// engine: every successful insert enqueues a work item, and Drain
// processes the queue to completion before any add/batch call returns
// (spec §4.F). The store itself never holds a mutex: the whole core runs
// single-threaded and cooperative, the same way the teacher's Badger
// transactions run one write transaction at a time.
package scheduler

import (
	"github.com/aleksaelezovic/ripple/internal/engine"
	"github.com/aleksaelezovic/ripple/internal/store"
)

// Scheduler holds the pending work queue and drives Engine.Feed over it.
type Scheduler struct {
	engine *engine.Engine
	store  *store.Store

	queue []*store.Quad

	draining bool // true while an outer Drain call owns the loop
	deferred bool // true while an explicit Batch body is running
}

// New creates a Scheduler over the given engine and store. The caller
// (pkg/ripple's facade) is expected to wire store.OnInsert to Enqueue.
func New(e *engine.Engine, s *store.Store) *Scheduler {
	return &Scheduler{engine: e, store: s}
}

// Enqueue appends a newly-inserted quad's work item to the tail of the
// queue. It never drains: draining happens from Drain, called once per
// top-level Add/Batch, so a production's own inserts never recurse into
// Feed from inside Feed (spec: "stack depth bounded by the queue, not the
// call stack").
func (s *Scheduler) Enqueue(q *store.Quad) {
	s.queue = append(s.queue, q)
}

// Drain processes the queue to empty, feeding each item to the engine in
// FIFO order. It is a no-op if called re-entrantly (from inside a
// production that is itself running inside an active Drain or Batch
// body): the outer call already owns the loop and will pick up anything
// just enqueued.
func (s *Scheduler) Drain() (err error) {
	if s.draining || s.deferred {
		return nil
	}
	s.draining = true
	defer func() {
		s.draining = false
		if r := recover(); r != nil {
			s.queue = nil
			if pe, ok := r.(*engine.ProductionError); ok {
				err = pe
				return
			}
			panic(r) // anything else is a genuine internal bug: fatal
		}
	}()

	for len(s.queue) > 0 {
		q := s.queue[0]
		s.queue = s.queue[1:]
		s.engine.Feed(q)
	}
	return nil
}

// batchSnapshot bundles everything a rollback needs to undo: the store's
// state and every watcher's match state, plus the queue as it stood when
// the batch opened.
type batchSnapshot struct {
	store *store.Snapshot
	match *engine.Snapshot
	queue []*store.Quad
}

// Batch runs fn with draining deferred: every Add inside fn only
// enqueues, it never triggers a Drain. Once fn returns without error, the
// deferred queue is drained normally. If fn returns an error (or panics),
// the store and every watcher's match state are rolled back to exactly
// how they stood before Batch started, and the queue built up during fn
// is discarded (spec §4.F, invariant transactional rollback).
func (s *Scheduler) Batch(fn func() error) (err error) {
	snap := batchSnapshot{
		store: s.store.Snapshot(),
		match: s.engine.Snapshot(),
		queue: append([]*store.Quad(nil), s.queue...),
	}

	wasDeferred := s.deferred
	s.deferred = true
	defer func() {
		s.deferred = wasDeferred
		if r := recover(); r != nil {
			s.rollback(snap)
			if pe, ok := r.(*engine.ProductionError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()

	if ferr := fn(); ferr != nil {
		s.rollback(snap)
		return ferr
	}

	if !wasDeferred {
		s.deferred = false
		if derr := s.Drain(); derr != nil {
			s.rollback(snap)
			return derr
		}
	}
	return nil
}

func (s *Scheduler) rollback(snap batchSnapshot) {
	s.store.Restore(snap.store)
	s.engine.Restore(snap.match)
	s.queue = snap.queue
}

// Pending reports how many work items are queued, for diagnostics/tests.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}
