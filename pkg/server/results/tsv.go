package results

import (
	"strings"
)

// FormatTSV renders r the same way FormatCSV does, but tab-separated and
// without CSV quoting, matching the SPARQL 1.1 TSV results format.
func FormatTSV(r Result) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(strings.Join(r.Vars, "\t"))
	sb.WriteByte('\n')

	for _, b := range r.Bindings {
		row := make([]string, len(r.Vars))
		for i, name := range r.Vars {
			row[i] = strings.ReplaceAll(cell(b, name), "\t", " ")
		}
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}
