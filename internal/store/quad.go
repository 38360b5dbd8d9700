// Package store implements the quad store: deduplicated storage of
// (entity, attribute, value, context) tuples behind four selective
// indexes, plus auto-context generation.
package store

import (
	"fmt"

	"github.com/aleksaelezovic/ripple/pkg/value"
)

// Slot identifies one of the four positions of a quad.
type Slot byte

const (
	SlotEntity Slot = iota
	SlotAttribute
	SlotValue
	SlotContext
)

func (s Slot) String() string {
	switch s {
	case SlotEntity:
		return "entity"
	case SlotAttribute:
		return "attribute"
	case SlotValue:
		return "value"
	case SlotContext:
		return "context"
	default:
		return "unknown"
	}
}

// Quad is an immutable 4-tuple plus its cached composite hash and the
// monotonic sequence number it was inserted under.
type Quad struct {
	Entity    value.Value
	Attribute value.Value
	Value     value.Value
	Context   value.Value

	hash uint64
	seq  uint64
}

// NewQuad constructs a quad and computes its composite hash once. All four
// slots must be literal values (not Variable/Wildcard) or InvalidQuad is
// returned.
func NewQuad(e, a, v, c value.Value, seq uint64) (*Quad, error) {
	for slot, v := range map[Slot]value.Value{SlotEntity: e, SlotAttribute: a, SlotValue: v, SlotContext: c} {
		if !value.IsLiteral(v) {
			return nil, fmt.Errorf("%w: slot %s is not a literal value", ErrInvalidQuad, slot)
		}
	}
	q := &Quad{Entity: e, Attribute: a, Value: v, Context: c, seq: seq}
	q.hash = combineHash(e, a, v, c)
	return q, nil
}

func combineHash(e, a, v, c value.Value) uint64 {
	h := value.Hash(e)
	h = value.Mix(h, value.Hash(a))
	h = value.Mix(h, value.Hash(v))
	h = value.Mix(h, value.Hash(c))
	return h
}

// Hash returns the cached composite hash.
func (q *Quad) Hash() uint64 { return q.hash }

// Seq returns the insertion sequence number, used as timestamp/tie-breaker.
func (q *Quad) Seq() uint64 { return q.seq }

// Slot returns the value occupying the given slot.
func (q *Quad) Slot(s Slot) value.Value {
	switch s {
	case SlotEntity:
		return q.Entity
	case SlotAttribute:
		return q.Attribute
	case SlotValue:
		return q.Value
	case SlotContext:
		return q.Context
	default:
		return nil
	}
}

// Equal reports whether q and o describe the same 4-tuple.
func (q *Quad) Equal(o *Quad) bool {
	if q == o {
		return true
	}
	if o == nil {
		return false
	}
	return q.hash == o.hash &&
		value.Equal(q.Entity, o.Entity) &&
		value.Equal(q.Attribute, o.Attribute) &&
		value.Equal(q.Value, o.Value) &&
		value.Equal(q.Context, o.Context)
}

func (q *Quad) String() string {
	return fmt.Sprintf("(%s, %s, %s, %s)", q.Entity, q.Attribute, q.Value, q.Context)
}
