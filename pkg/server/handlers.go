package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aleksaelezovic/ripple/internal/engine"
	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/pkg/server/results"
	"github.com/aleksaelezovic/ripple/pkg/surface"
)

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func readBody(r *http.Request) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading request body: %w", err)
	}
	return string(b), nil
}

// handleQuads handles POST /quads: the body is a single insertion quad
// literal, e.g. "(alice, age, 30, c1)". Responds with the context
// actually used and whether the insert was new.
func (s *Server) handleQuads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	e, a, v, c, err := surface.ParseQuad(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	ctx, isNew, err := s.store.Add(e, a, v, c)
	s.mu.Unlock()
	if err != nil {
		writeJSONError(w, http.StatusConflict, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"context": ctx.String(),
		"isNew":   isNew,
	})
}

// handleQuery handles POST /query: the body is a pattern literal, e.g.
// "(?p, age, ?a, *) !(?p, deleted, true, *)". The "format" query
// parameter selects the response encoding: json (default), csv, tsv, or
// xml.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	positive, nac, err := surface.ParsePattern(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	bindings, err := s.store.Query(positive, nac)
	s.mu.Unlock()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	result := results.NewResult(nil, bindings)
	format := r.URL.Query().Get("format")

	var out []byte
	var contentType string
	switch format {
	case "csv":
		out, err = results.FormatCSV(result)
		contentType = "text/csv; charset=utf-8"
	case "tsv":
		out, err = results.FormatTSV(result)
		contentType = "text/tab-separated-values; charset=utf-8"
	case "xml":
		out, err = results.FormatXML(result)
		contentType = "application/xml; charset=utf-8"
	default:
		out, err = results.FormatJSON(result)
		contentType = "application/json; charset=utf-8"
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(out)
}

// watcherRequest is the body of POST /watchers.
type watcherRequest struct {
	Pattern string `json:"pattern"`
	Webhook string `json:"webhook"`
}

// handleWatchers handles POST /watchers: installs a standing watcher
// whose production POSTs the firing binding, as JSON, to the given
// webhook URL. The production itself stays a plain Go closure; this
// handler only supplies the one that does the posting.
func (s *Server) handleWatchers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	var req watcherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("decoding request body: %w", err))
		return
	}
	positive, nac, err := surface.ParsePattern(req.Pattern)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	production := func(b pattern.Bindings, _ engine.ProductionStore) []engine.QuadLiteral {
		s.postWebhook(req.Webhook, b)
		return nil
	}

	s.mu.Lock()
	id, err := s.store.Watch(positive, nac, production)
	s.mu.Unlock()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"watcherId": id})
}

func (s *Server) postWebhook(url string, b pattern.Bindings) {
	row := make(map[string]string, len(b))
	for name, v := range b {
		if v != nil {
			row[name] = v.String()
		}
	}
	body, err := json.Marshal(row)
	if err != nil {
		return
	}
	resp, err := s.webhooks.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
