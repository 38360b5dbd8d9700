package engine

import (
	"testing"

	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/internal/registry"
	"github.com/aleksaelezovic/ripple/internal/store"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

func sym(s string) value.Value   { return value.Symbol(s) }
func num(n float64) value.Value  { return value.Number(n) }
func vr(name string) value.Value { return value.Variable{Name: name} }
func wc() value.Value            { return value.Wildcard{} }

// fakeFacade is a minimal ProductionStore for tests that do not need
// productions to read back through Contains/Query.
type fakeFacade struct {
	s *store.Store
	e *Engine
}

func (f *fakeFacade) Add(e, a, v, c value.Value) (value.Value, bool, error) {
	ctx, isNew, q, err := f.s.Add(e, a, v, c)
	if err != nil {
		return nil, false, err
	}
	if isNew {
		f.e.Feed(q)
	}
	return ctx, isNew, nil
}

func (f *fakeFacade) Contains(e, a, v, c value.Value) bool {
	return f.s.Contains(e, a, v, c)
}

func (f *fakeFacade) Query(patterns [][4]value.Value, nac [][4]value.Value) ([]pattern.Bindings, error) {
	return nil, nil
}

func newHarness() (*store.Store, *registry.Registry, *Engine, *fakeFacade) {
	s := store.New()
	r := registry.New()
	facade := &fakeFacade{s: s}
	e := New(s, r, facade)
	facade.e = e
	return s, r, e, facade
}

func TestSinglePatternWatcherFiresOnDirectMatch(t *testing.T) {
	s, r, e, _ := newHarness()
	w, err := pattern.Compile(1, [][4]value.Value{{vr("p"), sym("age"), vr("a"), wc()}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Install(w)

	var fired []pattern.Bindings
	e.RegisterProduction(1, func(b pattern.Bindings, _ ProductionStore) []QuadLiteral {
		fired = append(fired, b)
		return nil
	})

	_, _, q, _ := s.Add(sym("alice"), sym("age"), num(30), sym("c1"))
	e.Feed(q)

	if len(fired) != 1 {
		t.Fatalf("expected production to fire once, got %d", len(fired))
	}
	if !value.Equal(fired[0]["p"], sym("alice")) || !value.Equal(fired[0]["a"], num(30)) {
		t.Fatalf("unexpected binding: %+v", fired[0])
	}
}

func TestTwoPatternWatcherFiresOnlyAfterBothQuadsPresent(t *testing.T) {
	s, r, e, _ := newHarness()
	w, err := pattern.Compile(1, [][4]value.Value{
		{vr("p"), sym("type"), sym("person"), wc()},
		{vr("p"), sym("age"), vr("a"), wc()},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Install(w)

	var fired int
	e.RegisterProduction(1, func(b pattern.Bindings, _ ProductionStore) []QuadLiteral {
		fired++
		return nil
	})

	_, _, q1, _ := s.Add(sym("alice"), sym("type"), sym("person"), sym("c1"))
	e.Feed(q1)
	if fired != 0 {
		t.Fatalf("expected no fire yet, only one of two patterns satisfied, got %d", fired)
	}

	_, _, q2, _ := s.Add(sym("alice"), sym("age"), num(30), sym("c2"))
	e.Feed(q2)
	if fired != 1 {
		t.Fatalf("expected exactly one fire once both patterns are satisfied, got %d", fired)
	}
}

func TestAtMostOnceAcrossRepeatFeeds(t *testing.T) {
	s, r, e, _ := newHarness()
	w, err := pattern.Compile(1, [][4]value.Value{{vr("p"), sym("age"), vr("a"), wc()}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Install(w)

	var fired int
	e.RegisterProduction(1, func(b pattern.Bindings, _ ProductionStore) []QuadLiteral {
		fired++
		return nil
	})

	_, _, q, _ := s.Add(sym("alice"), sym("age"), num(30), sym("c1"))
	e.Feed(q)
	e.Feed(q) // re-feeding the same quad must never fire twice
	if fired != 1 {
		t.Fatalf("expected AT-MOST-ONCE, got %d fires", fired)
	}
}

func TestNACVetoesFiring(t *testing.T) {
	s, r, e, _ := newHarness()
	w, err := pattern.Compile(1,
		[][4]value.Value{{vr("p"), sym("type"), sym("person"), wc()}},
		[][4]value.Value{{vr("p"), sym("deleted"), sym("true"), wc()}},
	)
	if err != nil {
		t.Fatal(err)
	}
	r.Install(w)

	var fired int
	e.RegisterProduction(1, func(b pattern.Bindings, _ ProductionStore) []QuadLiteral {
		fired++
		return nil
	})

	s.Add(sym("alice"), sym("deleted"), sym("true"), sym("c1"))
	_, _, q, _ := s.Add(sym("alice"), sym("type"), sym("person"), sym("c2"))
	e.Feed(q)

	if fired != 0 {
		t.Fatalf("expected NAC to veto firing, got %d fires", fired)
	}
}

func TestNACDoesNotVetoWhenAbsent(t *testing.T) {
	s, r, e, _ := newHarness()
	w, err := pattern.Compile(1,
		[][4]value.Value{{vr("p"), sym("type"), sym("person"), wc()}},
		[][4]value.Value{{vr("p"), sym("deleted"), sym("true"), wc()}},
	)
	if err != nil {
		t.Fatal(err)
	}
	r.Install(w)

	var fired int
	e.RegisterProduction(1, func(b pattern.Bindings, _ ProductionStore) []QuadLiteral {
		fired++
		return nil
	})

	_, _, q, _ := s.Add(sym("alice"), sym("type"), sym("person"), sym("c1"))
	e.Feed(q)

	if fired != 1 {
		t.Fatalf("expected production to fire when NAC pattern is absent, got %d", fired)
	}
}

func TestInstallScanFindsPreexistingMatches(t *testing.T) {
	s, r, e, _ := newHarness()
	s.Add(sym("alice"), sym("age"), num(30), sym("c1"))
	s.Add(sym("bob"), sym("age"), num(40), sym("c2"))

	w, err := pattern.Compile(1, [][4]value.Value{{vr("p"), sym("age"), vr("a"), wc()}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Install(w)

	var fired int
	e.RegisterProduction(1, func(b pattern.Bindings, _ ProductionStore) []QuadLiteral {
		fired++
		return nil
	})
	e.InstallScan(w)

	if fired != 2 {
		t.Fatalf("expected a watcher installed after data already exists to find both matches, got %d", fired)
	}
}

func TestProductionCascadeInsertsThroughFacade(t *testing.T) {
	s, r, e, facade := newHarness()
	w, err := pattern.Compile(1, [][4]value.Value{{vr("p"), sym("age"), vr("a"), wc()}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Install(w)

	e.RegisterProduction(1, func(b pattern.Bindings, s ProductionStore) []QuadLiteral {
		return []QuadLiteral{{Entity: b["p"], Attribute: sym("has-age-fact"), Value: sym("true"), Context: nil}}
	})

	_, _, q, _ := s.Add(sym("alice"), sym("age"), num(30), sym("c1"))
	e.Feed(q)

	if !facade.Contains(sym("alice"), sym("has-age-fact"), sym("true"), sym("edge:0")) {
		t.Fatal("expected the production's cascaded insert to land in the store")
	}
}

func TestFiringPanicRollsBackOnlyThatProductionsInserts(t *testing.T) {
	s, r, e, facade := newHarness()
	w, err := pattern.Compile(1, [][4]value.Value{{vr("p"), sym("age"), vr("a"), wc()}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Install(w)

	e.RegisterProduction(1, func(b pattern.Bindings, s ProductionStore) []QuadLiteral {
		s.Add(b["p"], sym("partial-effect"), sym("true"), nil)
		panic("boom")
	})

	_, _, q, _ := s.Add(sym("alice"), sym("age"), num(30), sym("c1"))

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected the panic to propagate as a ProductionError")
		}
		if _, ok := r.(*ProductionError); !ok {
			t.Fatalf("expected *ProductionError, got %T", r)
		}
		if facade.Contains(sym("alice"), sym("partial-effect"), sym("true"), sym("edge:0")) {
			t.Fatal("expected the failing production's own insert to be rolled back")
		}
	}()
	e.Feed(q)
}
