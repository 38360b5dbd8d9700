package results

import (
	"bytes"
	"encoding/csv"
)

// FormatCSV renders r with the variable names as a header row, one data
// row per binding, in the style of the SPARQL 1.1 CSV results format.
func FormatCSV(r Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(r.Vars); err != nil {
		return nil, err
	}
	for _, b := range r.Bindings {
		row := make([]string, len(r.Vars))
		for i, name := range r.Vars {
			row[i] = cell(b, name)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
