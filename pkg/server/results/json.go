package results

import "encoding/json"

// jsonResult mirrors the teacher's SPARQL JSON results shape: a head with
// the variable ordering and a results object holding one map per binding.
type jsonResult struct {
	Head    jsonHead     `json:"head"`
	Results jsonBindings `json:"results"`
}

type jsonHead struct {
	Vars []string `json:"vars"`
}

type jsonBindings struct {
	Bindings []map[string]string `json:"bindings"`
}

// FormatJSON renders r as {"head":{"vars":[...]},"results":{"bindings":[...]}}.
// Unbound variables are simply absent from their binding's map.
func FormatJSON(r Result) ([]byte, error) {
	out := jsonResult{Head: jsonHead{Vars: r.Vars}}
	out.Results.Bindings = make([]map[string]string, 0, len(r.Bindings))
	for _, b := range r.Bindings {
		row := make(map[string]string, len(r.Vars))
		for _, name := range r.Vars {
			if v, ok := b[name]; ok && v != nil {
				row[name] = v.String()
			}
		}
		out.Results.Bindings = append(out.Results.Bindings, row)
	}
	return json.MarshalIndent(out, "", "  ")
}
