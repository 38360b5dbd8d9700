// Package snapshot is the persistence extension described by the
// "persisted state layout" contract: a JSON snapshot of the whole store
// plus a JSON-Lines incremental log, and an optional Badger-backed
// write-behind mirror that observes the store through an ordinary
// watcher instead of the store reading or writing files itself.
// Grounded on the teacher's Badger storage layer (repurposed here as an
// append-only mirror log rather than the live index, which always stays
// internal/store) and its JSON-LD codec's tagged-value conventions.
package snapshot

import (
	"fmt"

	"github.com/aleksaelezovic/ripple/pkg/value"
)

// jsonValue is the wire shape for one value.Value: a kind tag plus a
// kind-appropriate payload. External values cannot round-trip through
// this codec, since their identity is defined by a host-supplied
// ExternalHasher that has no serializable form.
type jsonValue struct {
	Kind    string  `json:"kind"`
	Symbol  string  `json:"symbol,omitempty"`
	Number  float64 `json:"number,omitempty"`
	Text    string  `json:"text,omitempty"`
	Bool    bool    `json:"bool,omitempty"`
}

func encodeValue(v value.Value) (jsonValue, error) {
	switch t := v.(type) {
	case value.Symbol:
		return jsonValue{Kind: "symbol", Symbol: string(t)}, nil
	case value.Number:
		return jsonValue{Kind: "number", Number: float64(t)}, nil
	case value.Text:
		return jsonValue{Kind: "text", Text: string(t)}, nil
	case value.Bool:
		return jsonValue{Kind: "bool", Bool: bool(t)}, nil
	case value.Null:
		return jsonValue{Kind: "null"}, nil
	default:
		return jsonValue{}, fmt.Errorf("snapshot: value of type %T has no JSON encoding", v)
	}
}

func decodeValue(jv jsonValue) (value.Value, error) {
	switch jv.Kind {
	case "symbol":
		return value.Symbol(jv.Symbol), nil
	case "number":
		return value.Number(jv.Number), nil
	case "text":
		return value.Text(jv.Text), nil
	case "bool":
		return value.Bool(jv.Bool), nil
	case "null":
		return value.Null{}, nil
	default:
		return nil, fmt.Errorf("snapshot: unknown value kind %q", jv.Kind)
	}
}
