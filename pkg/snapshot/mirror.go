package snapshot

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleksaelezovic/ripple/internal/engine"
	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/pkg/ripple"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

// Mirror is a Badger-backed append-only write-behind log: it never
// participates in matching or querying (the live index is always
// internal/store), it only durably records every quad a Store observes,
// so a crashed process can rebuild the store by replaying the mirror.
type Mirror struct {
	db  *badger.DB
	seq atomic.Uint64
}

// OpenMirror opens (creating if necessary) a Badger database at path to
// back a Mirror. New entries are keyed after the last entry already in
// the log.
func OpenMirror(path string) (*Mirror, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: opening mirror db: %w", err)
	}
	m := &Mirror{db: db}
	_ = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte("log:")
		it := txn.NewIterator(opts)
		defer it.Close()
		if it.Seek([]byte("log:~")); it.ValidForPrefix(opts.Prefix) {
			var last uint64
			_, _ = fmt.Sscanf(string(it.Item().Key()), "log:%d", &last)
			m.seq.Store(last)
		}
		return nil
	})
	return m, nil
}

// Close closes the underlying Badger database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// Attach installs a catch-all watcher on s whose production is a no-op as
// far as the store is concerned: its only effect is to append the
// observed quad to the mirror's append log. The watcher's own install
// scan mirrors every quad already in s, then every subsequently inserted
// quad, so Attach can be called at any point in a Store's lifetime.
func (m *Mirror) Attach(s *ripple.Store) (uint64, error) {
	vE, vA, vV, vC := value.Variable{Name: "e"}, value.Variable{Name: "a"}, value.Variable{Name: "v"}, value.Variable{Name: "c"}
	return s.Watch(
		[][4]value.Value{{vE, vA, vV, vC}},
		nil,
		func(b pattern.Bindings, _ engine.ProductionStore) []engine.QuadLiteral {
			q := ripple.Quad{Entity: b["e"], Attribute: b["a"], Value: b["v"], Context: b["c"]}
			if err := m.append(q); err != nil {
				panic(fmt.Errorf("snapshot: mirror append failed: %w", err))
			}
			return nil
		},
	)
}

// append durably records q under a monotonically increasing key, so an
// iteration over the database replays quads in observation order.
func (m *Mirror) append(q ripple.Quad) error {
	j, err := encodeEdge(q)
	if err != nil {
		return err
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	key := fmt.Appendf(nil, "log:%020d", m.seq.Add(1))
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, b)
	})
}

// Replay reads every mirrored quad back, in observation order, and
// inserts it into s via Add. Used to rebuild a Store from a mirror after
// a crash or restart.
func (m *Mirror) Replay(s *ripple.Store) error {
	return m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("log:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			var j edgeJSON
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &j)
			}); err != nil {
				return fmt.Errorf("snapshot: decoding mirror entry %s: %w", item.Key(), err)
			}
			q, err := decodeEdge(j)
			if err != nil {
				return fmt.Errorf("snapshot: decoding mirror entry %s: %w", item.Key(), err)
			}
			if _, _, err := s.Add(q.Entity, q.Attribute, q.Value, q.Context); err != nil {
				return fmt.Errorf("snapshot: replaying mirror entry %s: %w", item.Key(), err)
			}
		}
		return nil
	})
}
