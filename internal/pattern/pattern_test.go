package pattern

import (
	"testing"

	"github.com/aleksaelezovic/ripple/internal/store"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

func sym(s string) value.Value   { return value.Symbol(s) }
func vr(name string) value.Value { return value.Variable{Name: name} }
func wc() value.Value            { return value.Wildcard{} }

func TestChooseActivationKeyPrefersEntity(t *testing.T) {
	w, err := Compile(1, [][4]value.Value{
		{sym("alice"), vr("p"), vr("v"), wc()},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.ActivationKey.IsWildcard || w.ActivationKey.Slot != store.SlotEntity {
		t.Fatalf("expected entity activation key, got %+v", w.ActivationKey)
	}
}

func TestChooseActivationKeyFallsBackToAttribute(t *testing.T) {
	w, err := Compile(1, [][4]value.Value{
		{vr("p"), sym("age"), vr("v"), wc()},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.ActivationKey.Slot != store.SlotAttribute {
		t.Fatalf("expected attribute activation key, got %+v", w.ActivationKey)
	}
}

func TestChooseActivationKeyWildcardWhenNoLiteral(t *testing.T) {
	w, err := Compile(1, [][4]value.Value{
		{vr("e"), vr("p"), vr("v"), vr("c")},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !w.ActivationKey.IsWildcard {
		t.Fatalf("expected wildcard activation key, got %+v", w.ActivationKey)
	}
}

func TestVariableConsistencyTable(t *testing.T) {
	w, err := Compile(1, [][4]value.Value{
		{vr("x"), sym("likes"), vr("y"), wc()},
		{vr("y"), sym("likes"), vr("x"), wc()},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.VarPositions["x"]) != 2 || len(w.VarPositions["y"]) != 2 {
		t.Fatalf("expected x and y to each occupy 2 positions, got %+v", w.VarPositions)
	}
}

func TestCompileRejectsEmptyPattern(t *testing.T) {
	if _, err := Compile(1, nil, nil); err == nil {
		t.Fatal("expected error for empty positive pattern list")
	}
}

func TestCompileRejectsUnboundNACVariable(t *testing.T) {
	_, err := Compile(1, [][4]value.Value{
		{vr("p"), sym("type"), sym("person"), wc()},
	}, [][4]value.Value{
		{vr("other"), sym("deleted"), sym("true"), wc()},
	})
	if err == nil {
		t.Fatal("expected error for NAC variable never bound by a positive pattern")
	}
}

func TestUnifyLiteralMismatch(t *testing.T) {
	qp := CompileQuadPattern(vr("p"), sym("age"), vr("a"), wc())
	q, _ := store.NewQuad(sym("alice"), sym("name"), value.Text("Alice"), sym("c1"), 0)
	if _, ok := Unify(qp, q); ok {
		t.Fatal("expected unify to fail on attribute literal mismatch")
	}
}

func TestUnifyBindsVariables(t *testing.T) {
	qp := CompileQuadPattern(vr("p"), sym("age"), vr("a"), wc())
	q, _ := store.NewQuad(sym("alice"), sym("age"), value.Number(30), sym("c1"), 0)
	b, ok := Unify(qp, q)
	if !ok {
		t.Fatal("expected unify to succeed")
	}
	if !value.Equal(b["p"], sym("alice")) || !value.Equal(b["a"], value.Number(30)) {
		t.Fatalf("unexpected bindings: %+v", b)
	}
}

func TestUnifySameVariableTwiceMustAgree(t *testing.T) {
	qp := CompileQuadPattern(vr("x"), sym("likes"), vr("x"), wc())
	mismatch, _ := store.NewQuad(sym("alice"), sym("likes"), sym("bob"), sym("c1"), 0)
	if _, ok := Unify(qp, mismatch); ok {
		t.Fatal("expected unify to fail when the same variable would take two different values")
	}

	match, _ := store.NewQuad(sym("alice"), sym("likes"), sym("alice"), sym("c1"), 0)
	b, ok := Unify(qp, match)
	if !ok || !value.Equal(b["x"], sym("alice")) {
		t.Fatal("expected unify to succeed when the repeated variable agrees")
	}
}

func TestBindingsMergeConsistency(t *testing.T) {
	a := Bindings{"x": sym("alice")}
	b := Bindings{"x": sym("alice"), "y": sym("bob")}
	merged, ok := a.Merge(b)
	if !ok || !value.Equal(merged["y"], sym("bob")) {
		t.Fatal("expected consistent merge to succeed")
	}

	c := Bindings{"x": sym("carol")}
	if _, ok := a.Merge(c); ok {
		t.Fatal("expected merge to fail when a shared variable disagrees")
	}
}

func TestSignatureDeterministicRegardlessOfInsertionOrder(t *testing.T) {
	b1 := Bindings{"b": sym("bob"), "a": sym("alice")}
	b2 := Bindings{"a": sym("alice"), "b": sym("bob")}
	vars := []string{"a", "b"}
	if b1.Signature(vars) != b2.Signature(vars) {
		t.Fatal("expected signature to be independent of map iteration/insertion order")
	}
}

func TestGroundReplacesVariablesWithLiterals(t *testing.T) {
	qp := CompileQuadPattern(vr("p"), sym("deleted"), sym("true"), wc())
	grounded, ok := Ground(qp, Bindings{"p": sym("bob")})
	if !ok {
		t.Fatal("expected ground to succeed when p is bound")
	}
	if grounded.AllLiteral {
		t.Fatal("expected a grounded pattern that keeps a wildcard slot to report AllLiteral=false")
	}
	if grounded.Slots[store.SlotEntity].Shape != ShapeLiteral || !value.Equal(grounded.Slots[store.SlotEntity].Literal, sym("bob")) {
		t.Fatalf("expected entity slot grounded to bob, got %+v", grounded.Slots[store.SlotEntity])
	}
}

func TestGroundFailsOnUnboundVariable(t *testing.T) {
	qp := CompileQuadPattern(vr("p"), sym("deleted"), sym("true"), wc())
	if _, ok := Ground(qp, Bindings{}); ok {
		t.Fatal("expected ground to fail when p is unbound")
	}
}

func TestMostSelectiveSlotPriority(t *testing.T) {
	qp := CompileQuadPattern(vr("e"), sym("age"), num30(), wc())
	slot, literal, ok := MostSelectiveSlot(qp)
	if !ok || slot != store.SlotAttribute || !value.Equal(literal, sym("age")) {
		t.Fatalf("expected attribute to be the most selective slot, got slot=%v literal=%v ok=%v", slot, literal, ok)
	}
}

func num30() value.Value { return value.Number(30) }

func TestMatchesIgnoresWildcardAndHonorsLiterals(t *testing.T) {
	qp := CompileQuadPattern(sym("bob"), sym("deleted"), sym("true"), wc())
	match, _ := store.NewQuad(sym("bob"), sym("deleted"), sym("true"), sym("c9"), 0)
	mismatch, _ := store.NewQuad(sym("bob"), sym("deleted"), sym("false"), sym("c9"), 0)

	if !Matches(qp, match) {
		t.Fatal("expected matches to succeed regardless of wildcard context")
	}
	if Matches(qp, mismatch) {
		t.Fatal("expected matches to fail on value literal mismatch")
	}
}

func TestSubstituteGroundsPattern(t *testing.T) {
	qp := CompileQuadPattern(vr("x"), sym("status"), sym("verified"), sym("c1"))
	_, _, _, _, ok := Substitute(qp, Bindings{})
	if ok {
		t.Fatal("expected substitute to fail with an unbound variable")
	}

	e, a, v, c, ok := Substitute(qp, Bindings{"x": sym("item1")})
	if !ok {
		t.Fatal("expected substitute to succeed once x is bound")
	}
	if !value.Equal(e, sym("item1")) || !value.Equal(a, sym("status")) || !value.Equal(v, sym("verified")) || !value.Equal(c, sym("c1")) {
		t.Fatalf("unexpected substitution result: %v %v %v %v", e, a, v, c)
	}
}
