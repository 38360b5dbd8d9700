package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aleksaelezovic/ripple/pkg/ripple"
)

// edgeJSON is one quad's wire shape, used both by the whole-store snapshot
// and by each line of the incremental log.
type edgeJSON struct {
	Entity    jsonValue `json:"entity"`
	Attribute jsonValue `json:"attribute"`
	Value     jsonValue `json:"value"`
	Context   jsonValue `json:"context"`
}

func encodeEdge(q ripple.Quad) (edgeJSON, error) {
	e, err := encodeValue(q.Entity)
	if err != nil {
		return edgeJSON{}, err
	}
	a, err := encodeValue(q.Attribute)
	if err != nil {
		return edgeJSON{}, err
	}
	v, err := encodeValue(q.Value)
	if err != nil {
		return edgeJSON{}, err
	}
	c, err := encodeValue(q.Context)
	if err != nil {
		return edgeJSON{}, err
	}
	return edgeJSON{Entity: e, Attribute: a, Value: v, Context: c}, nil
}

func decodeEdge(j edgeJSON) (ripple.Quad, error) {
	e, err := decodeValue(j.Entity)
	if err != nil {
		return ripple.Quad{}, err
	}
	a, err := decodeValue(j.Attribute)
	if err != nil {
		return ripple.Quad{}, err
	}
	v, err := decodeValue(j.Value)
	if err != nil {
		return ripple.Quad{}, err
	}
	c, err := decodeValue(j.Context)
	if err != nil {
		return ripple.Quad{}, err
	}
	return ripple.Quad{Entity: e, Attribute: a, Value: v, Context: c}, nil
}

// document is the snapshot file's top-level shape: {"edges": [...]}.
type document struct {
	Edges []edgeJSON `json:"edges"`
}

// WriteSnapshot writes every quad currently in s to w as a single JSON
// document of the form {"edges": [...]}.
func WriteSnapshot(w io.Writer, s *ripple.Store) error {
	edges := s.Edges()
	doc := document{Edges: make([]edgeJSON, 0, len(edges))}
	for _, q := range edges {
		j, err := encodeEdge(q)
		if err != nil {
			return fmt.Errorf("snapshot: encoding edge: %w", err)
		}
		doc.Edges = append(doc.Edges, j)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// LoadSnapshot reads a JSON document of the form {"edges": [...]} from r
// and inserts each edge into s via Add, in document order.
func LoadSnapshot(r io.Reader, s *ripple.Store) error {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("snapshot: decoding document: %w", err)
	}
	for i, j := range doc.Edges {
		q, err := decodeEdge(j)
		if err != nil {
			return fmt.Errorf("snapshot: edge %d: %w", i, err)
		}
		if _, _, err := s.Add(q.Entity, q.Attribute, q.Value, q.Context); err != nil {
			return fmt.Errorf("snapshot: replaying edge %d: %w", i, err)
		}
	}
	return nil
}

// AppendLogEntry appends one quad to w as a single JSON-Lines record. It is
// intended to be called once per observed quad, e.g. from a Mirror's
// production, so the log accumulates in store insertion order.
func AppendLogEntry(w io.Writer, q ripple.Quad) error {
	j, err := encodeEdge(q)
	if err != nil {
		return fmt.Errorf("snapshot: encoding log entry: %w", err)
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

// ReplayLog reads a JSON-Lines incremental log from r and inserts each
// entry into s via Add, in log order. Blank lines are skipped.
func ReplayLog(r io.Reader, s *ripple.Store) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var j edgeJSON
		if err := json.Unmarshal(text, &j); err != nil {
			return fmt.Errorf("snapshot: log line %d: %w", line, err)
		}
		q, err := decodeEdge(j)
		if err != nil {
			return fmt.Errorf("snapshot: log line %d: %w", line, err)
		}
		if _, _, err := s.Add(q.Entity, q.Attribute, q.Value, q.Context); err != nil {
			return fmt.Errorf("snapshot: replaying log line %d: %w", line, err)
		}
	}
	return scanner.Err()
}
