// Package value defines the canonical value model shared by every slot of a
// quad: entity, attribute, value, and context are all values of this type.
package value

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"
)

// Kind identifies which concrete shape a Value holds.
type Kind byte

const (
	KindSymbol Kind = iota + 1
	KindNumber
	KindText
	KindBool
	KindNull
	KindExternal
	KindVariable
	KindWildcard
)

// Value is the canonical, totally-ordered-by-equality payload that can sit
// in any of the four slots of a quad. Concrete Go types implement it; the
// zero value of each concrete type is a valid Value.
type Value interface {
	Kind() Kind
	Equal(other Value) bool
	Hash() uint64
	String() string
}

// ExternalHasher lets a host supply equality/hash for its own opaque
// external-reference values, per the value-equality hook of the spec.
// Equal must be an equivalence relation and Hash must agree with Equal.
type ExternalHasher interface {
	EqualExternal(a, b any) bool
	HashExternal(v any) uint64
}

// hash tags keep distinct kinds from colliding even when their payload
// bytes happen to coincide (e.g. Number(0) vs Bool(false)).
const (
	tagSymbol byte = iota + 1
	tagNumber
	tagText
	tagBoolTrue
	tagBoolFalse
	tagNull
	tagExternal
)

func hashBytes(tag byte, b []byte) uint64 {
	buf := make([]byte, 0, len(b)+1)
	buf = append(buf, tag)
	buf = append(buf, b...)
	return xxh3.Hash(buf)
}

// Symbol is an interned atom/identifier, e.g. an entity or attribute name.
type Symbol string

func (s Symbol) Kind() Kind   { return KindSymbol }
func (s Symbol) String() string { return string(s) }
func (s Symbol) Equal(other Value) bool {
	o, ok := other.(Symbol)
	return ok && o == s
}
func (s Symbol) Hash() uint64 { return hashBytes(tagSymbol, []byte(s)) }

// Number is a double-precision numeric value.
type Number float64

func (n Number) Kind() Kind   { return KindNumber }
func (n Number) String() string { return fmt.Sprintf("%v", float64(n)) }
func (n Number) Equal(other Value) bool {
	o, ok := other.(Number)
	return ok && o == n
}
func (n Number) Hash() uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(float64(n)))
	return hashBytes(tagNumber, buf[:])
}

// Text is a string value.
type Text string

func (t Text) Kind() Kind   { return KindText }
func (t Text) String() string { return string(t) }
func (t Text) Equal(other Value) bool {
	o, ok := other.(Text)
	return ok && o == t
}
func (t Text) Hash() uint64 { return hashBytes(tagText, []byte(t)) }

// Bool is a boolean value.
type Bool bool

func (b Bool) Kind() Kind   { return KindBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Equal(other Value) bool {
	o, ok := other.(Bool)
	return ok && o == b
}
func (b Bool) Hash() uint64 {
	if b {
		return hashBytes(tagBoolTrue, nil)
	}
	return hashBytes(tagBoolFalse, nil)
}

// Null is the singleton null value.
type Null struct{}

func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "null" }
func (Null) Equal(other Value) bool {
	_, ok := other.(Null)
	return ok
}
func (Null) Hash() uint64 { return hashBytes(tagNull, nil) }

// External wraps an opaque host-defined reference. Equality and hashing are
// delegated to the supplied ExternalHasher: Equal asks the receiver's
// hasher, and an External with a nil Hasher is never equal to anything.
type External struct {
	Ref    any
	Hasher ExternalHasher
}

func (e External) Kind() Kind { return KindExternal }
func (e External) String() string {
	return fmt.Sprintf("external(%v)", e.Ref)
}
func (e External) Equal(other Value) bool {
	o, ok := other.(External)
	if !ok || e.Hasher == nil || o.Hasher == nil {
		return false
	}
	return e.Hasher.EqualExternal(e.Ref, o.Ref)
}
func (e External) Hash() uint64 {
	if e.Hasher == nil {
		return hashBytes(tagExternal, nil)
	}
	h := e.Hasher.HashExternal(e.Ref)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return hashBytes(tagExternal, buf[:])
}

// Variable is a pattern-only marker: a named binding slot. It is never
// valid inside a stored quad; the store rejects it with InvalidQuad.
type Variable struct {
	Name string
}

func (v Variable) Kind() Kind     { return KindVariable }
func (v Variable) String() string { return "?" + v.Name }
func (v Variable) Equal(other Value) bool {
	o, ok := other.(Variable)
	return ok && o.Name == v.Name
}
func (v Variable) Hash() uint64 { return hashBytes(tagSymbol, []byte("?"+v.Name)) }

// Wildcard is a pattern-only marker meaning "match anything, bind nothing".
type Wildcard struct{}

func (Wildcard) Kind() Kind     { return KindWildcard }
func (Wildcard) String() string { return "*" }
func (Wildcard) Equal(other Value) bool {
	_, ok := other.(Wildcard)
	return ok
}
func (Wildcard) Hash() uint64 { return hashBytes(tagSymbol, []byte("*")) }

// Equal reports whether a and b are the same value. A nil Value equals
// only another nil Value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// Hash returns a's stable 64-bit hash, or 0 for a nil Value.
func Hash(a Value) uint64 {
	if a == nil {
		return 0
	}
	return a.Hash()
}

// IsVariable reports whether v is a pattern Variable.
func IsVariable(v Value) bool {
	_, ok := v.(Variable)
	return ok
}

// IsWildcard reports whether v is a pattern Wildcard.
func IsWildcard(v Value) bool {
	_, ok := v.(Wildcard)
	return ok
}

// IsLiteral reports whether v is neither a Variable nor a Wildcard, i.e.
// it is safe to store in a quad or use as a discriminating match key.
func IsLiteral(v Value) bool {
	return v != nil && !IsVariable(v) && !IsWildcard(v)
}

// Mix combines two 64-bit hashes into one, used to build the composite hash
// of a quad from its four slot hashes. It is a fixed FNV-1a-style mixer.
func Mix(h, v uint64) uint64 {
	const prime64 = 1099511628211
	h ^= v
	h *= prime64
	return h
}
