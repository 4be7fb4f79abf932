// Package testserver is a rudimentary key-value HTTP server, for development
// or testing purposes only.
//
// Keys are request paths minus the leading "/", and their values are held in
// memory. A key with a value answers 200 and the value as body, anything else
// answers 404. Every request path is appended to an access log that tests can
// inspect to assert on caching behavior.
//
//	srv := testserver.New(map[string]string{"key": "value"}, testserver.WithAddress("127.0.0.1:0"))
//	if err := srv.Start(); err != nil {
//		...
//	}
//	defer srv.Close()
//	// GET srv.URL() + "/key" -> "value"
package testserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zebr0/zebr0-go/internal/buildinfo"
	"github.com/zebr0/zebr0-go/internal/log"
	"github.com/zebr0/zebr0-go/internal/store"
)

// DefaultAddress is where the server listens unless WithAddress is given.
const DefaultAddress = "127.0.0.1:8000"

const closeTimeout = 5 * time.Second

// ErrNotStarted is returned by operations that need a listening server.
var ErrNotStarted = errors.New("test server not started")

// Server serves keys from an in-memory store.
type Server struct {
	addr  string
	store *store.MemoryStore
	srv   *http.Server

	mu   sync.Mutex // protects ln and done
	ln   net.Listener
	done chan struct{}
}

// Opt is a function option for configuring the Server.
type Opt func(s *Server)

// WithAddress sets the host:port to listen on. Port 0 picks a free port,
// see URL for the one actually bound.
func WithAddress(addr string) Opt {
	return func(s *Server) {
		s.addr = addr
	}
}

// New creates a server holding a copy of data, which may be nil.
func New(data map[string]string, opts ...Opt) *Server {
	s := &Server{
		addr:  DefaultAddress,
		store: store.NewStore(data),
	}
	for _, o := range opts {
		o(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleKey)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the listening socket and serves in the background.
// It returns once the server accepts connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return errors.New("test server already started")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("test server stopped", "address", ln.Addr().String(), "error", err)
		}
	}(s.done)

	log.Info("test server listening", "address", ln.Addr().String())
	return nil
}

// ListenAndServe starts the server and blocks until it is shut down.
func (s *Server) ListenAndServe() error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.Wait()
}

// Wait blocks until a started server has stopped serving.
func (s *Server) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return ErrNotStarted
	}
	<-done
	return nil
}

// URL returns the base URL of the server, e.g. "http://127.0.0.1:8000".
// Before Start it is derived from the configured address.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return "http://" + s.ln.Addr().String()
	}
	return "http://" + s.addr
}

// SetData replaces every key with a copy of data.
func (s *Server) SetData(data map[string]string) { s.store.Replace(data) }

// Set stores a single key. An empty value removes it.
func (s *Server) Set(key, value string) { s.store.Set(key, value) }

// Data returns a copy of the keys currently served.
func (s *Server) Data() map[string]string { return s.store.Snapshot() }

// AccessLogs returns the request paths received so far, oldest first.
func (s *Server) AccessLogs() []string { return s.store.AccessLogs() }

// ResetAccessLogs empties the access log.
func (s *Server) ResetAccessLogs() { s.store.ResetAccessLogs() }

// Shutdown stops the server gracefully, waiting for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	started := s.ln != nil
	s.mu.Unlock()

	if !started {
		return ErrNotStarted
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown test server: %w", err)
	}
	<-done
	return nil
}

// Close shuts the server down, giving in-flight requests a few seconds.
// Closing a server that never started is a no-op.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil && !errors.Is(err, ErrNotStarted) {
		return err
	}
	return nil
}

// handleKey answers GET /<key>.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	// logged before answering so that a client reading the response always
	// finds its request in the access log
	s.store.Record(r.URL.Path)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Server", "zebr0-testserver/"+buildinfo.Version)

	value, ok := s.store.Lookup(r.URL.Path)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, value); err != nil {
		log.Debug("test server: writing response", "path", r.URL.Path, "error", err)
	}
}
