// Package registry implements the watcher registry: the selective
// activation index that routes an incoming quad to only the small subset
// of watchers its activation key could possibly extend.
package registry

import (
	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/internal/store"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

// Registry holds the four literal buckets and the wildcard bucket. A
// watcher is installed into exactly one of these five buckets, chosen by
// its ActivationKey, so CandidateWatchers never has to deduplicate.
type Registry struct {
	literal  [4]map[uint64][]*pattern.Watcher
	wildcard []*pattern.Watcher
	byID     map[uint64]*pattern.Watcher
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{byID: make(map[uint64]*pattern.Watcher)}
	for i := range r.literal {
		r.literal[i] = make(map[uint64][]*pattern.Watcher)
	}
	return r
}

// Install adds w to its activation bucket.
func (r *Registry) Install(w *pattern.Watcher) {
	r.byID[w.ID] = w
	if w.ActivationKey.IsWildcard {
		r.wildcard = append(r.wildcard, w)
		return
	}
	key := value.Hash(w.ActivationKey.Literal)
	slot := w.ActivationKey.Slot
	r.literal[slot][key] = append(r.literal[slot][key], w)
}

// Uninstall removes the watcher with the given id, if present. Idempotent:
// removing an unknown id is a no-op, matching UnknownWatcher's "already
// gone" semantics at the facade layer.
func (r *Registry) Uninstall(id uint64) (*pattern.Watcher, bool) {
	w, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)

	if w.ActivationKey.IsWildcard {
		r.wildcard = removeWatcher(r.wildcard, id)
		return w, true
	}
	key := value.Hash(w.ActivationKey.Literal)
	slot := w.ActivationKey.Slot
	r.literal[slot][key] = removeWatcher(r.literal[slot][key], id)
	if len(r.literal[slot][key]) == 0 {
		delete(r.literal[slot], key)
	}
	return w, true
}

func removeWatcher(list []*pattern.Watcher, id uint64) []*pattern.Watcher {
	for i, w := range list {
		if w.ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Get returns the watcher with the given id, if still installed.
func (r *Registry) Get(id uint64) (*pattern.Watcher, bool) {
	w, ok := r.byID[id]
	return w, ok
}

// CandidateWatchers returns every watcher that q might extend: the union
// of the four literal-bucket lookups for q's own slot values, plus every
// wildcard watcher. Each installed watcher occupies exactly one bucket,
// so the result never contains duplicates.
func (r *Registry) CandidateWatchers(q *store.Quad) []*pattern.Watcher {
	out := make([]*pattern.Watcher, 0, len(r.wildcard))
	out = append(out, r.wildcard...)
	for slot := store.Slot(0); slot < 4; slot++ {
		key := value.Hash(q.Slot(slot))
		out = append(out, r.literal[slot][key]...)
	}
	return out
}

// Len returns the number of installed watchers, for diagnostics.
func (r *Registry) Len() int {
	return len(r.byID)
}
