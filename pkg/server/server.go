// Package server is the HTTP facade over a Store: POST /quads to insert,
// POST /query for a one-shot join, and POST /watchers to install a
// standing watcher whose production posts to a caller-supplied webhook.
// Adapted from the teacher's SPARQL HTTP endpoint: same mux-per-route,
// same server-with-timeouts construction, but reading/writing this
// store's quad literals instead of SPARQL queries and RDF terms.
package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/aleksaelezovic/ripple/pkg/ripple"
)

// Server exposes a single *ripple.Store over HTTP. The store is not safe
// for unsynchronized concurrent use (spec §5), so every handler takes mu
// before touching it.
type Server struct {
	mu    sync.Mutex
	store *ripple.Store
	addr  string

	webhooks *http.Client
}

// New creates a Server wrapping store, to be served on addr (e.g.
// ":8080").
func New(store *ripple.Store, addr string) *Server {
	return &Server{
		store:    store,
		addr:     addr,
		webhooks: &http.Client{Timeout: 5 * time.Second},
	}
}

// Start blocks, serving until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/quads", s.handleQuads)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/watchers", s.handleWatchers)

	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("ripple: serving at http://%s", s.addr)
	return httpServer.ListenAndServe()
}
