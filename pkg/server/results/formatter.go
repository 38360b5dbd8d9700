// Package results formats query bindings for HTTP responses, in the
// handful of tabular/structured shapes the teacher's SPARQL endpoint
// offered its clients — generalized here from SPARQL's term/binding
// model to this store's flat value.Value bindings.
package results

import (
	"sort"

	"github.com/aleksaelezovic/ripple/internal/pattern"
)

// Result is the format-agnostic shape every formatter in this package
// consumes: a variable ordering and the bindings to render under it.
type Result struct {
	Vars     []string
	Bindings []pattern.Bindings
}

// NewResult builds a Result, deriving Vars (sorted alphabetically) from
// the union of every binding's keys when vars is nil.
func NewResult(vars []string, bindings []pattern.Bindings) Result {
	if vars != nil {
		return Result{Vars: vars, Bindings: bindings}
	}
	seen := make(map[string]bool)
	var names []string
	for _, b := range bindings {
		for name := range b {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return Result{Vars: names, Bindings: bindings}
}

// cell renders one binding's value for var name, or "" if unbound.
func cell(b pattern.Bindings, name string) string {
	v, ok := b[name]
	if !ok || v == nil {
		return ""
	}
	return v.String()
}
