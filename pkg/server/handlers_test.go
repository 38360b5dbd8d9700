package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aleksaelezovic/ripple/pkg/ripple"
)

func newTestServer() *Server {
	return New(ripple.New(), ":0")
}

func postBody(t *testing.T, handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleQuadsInsertsAndReportsIsNew(t *testing.T) {
	s := newTestServer()
	rec := postBody(t, s.handleQuads, "/quads", "(alice, age, 30, c1)")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["isNew"] != true {
		t.Fatalf("expected isNew=true, got %v", resp)
	}

	rec2 := postBody(t, s.handleQuads, "/quads", "(alice, age, 30, c1)")
	var resp2 map[string]any
	if err := json.Unmarshal(rec2.Body.Bytes(), &resp2); err != nil {
		t.Fatal(err)
	}
	if resp2["isNew"] != false {
		t.Fatalf("expected the repeated insert to report isNew=false, got %v", resp2)
	}
}

func TestHandleQuadsRejectsMalformedLiteral(t *testing.T) {
	s := newTestServer()
	rec := postBody(t, s.handleQuads, "/quads", "not a quad")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleQueryReturnsJSONBindings(t *testing.T) {
	s := newTestServer()
	postBody(t, s.handleQuads, "/quads", "(alice, age, 30, c1)")

	rec := postBody(t, s.handleQuery, "/query", "(?p, age, ?a, *)")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "alice") {
		t.Fatalf("expected alice in the response body, got %s", rec.Body.String())
	}
}

func TestHandleQueryCSVFormat(t *testing.T) {
	s := newTestServer()
	postBody(t, s.handleQuads, "/quads", "(alice, age, 30, c1)")

	req := httptest.NewRequest(http.MethodPost, "/query?format=csv", strings.NewReader("(?p, age, ?a, *)"))
	rec := httptest.NewRecorder()
	s.handleQuery(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("expected a csv content type, got %s", rec.Header().Get("Content-Type"))
	}
}

func TestHandleWatchersInstallsWatcherAndFiresWebhook(t *testing.T) {
	var received string
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		received = body["p"]
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	s := newTestServer()
	reqBody, _ := json.Marshal(watcherRequest{Pattern: "(?p, age, ?a, *)", Webhook: webhook.URL})
	rec := postBody(t, s.handleWatchers, "/watchers", string(reqBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	postBody(t, s.handleQuads, "/quads", "(alice, age, 30, c1)")

	if received != "alice" {
		t.Fatalf("expected the webhook to have received p=alice, got %q", received)
	}
}

func TestHandleQuadsRejectsNonPost(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/quads", nil)
	rec := httptest.NewRecorder()
	s.handleQuads(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
