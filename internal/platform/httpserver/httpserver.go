// Package httpserver constructs the ledger's HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// readHeaderTimeout bounds slow-header clients; per-request deadlines are
// left to the handlers.
const readHeaderTimeout = 5 * time.Second

// New returns a server for the given address and handler, ready for
// ListenAndServe. Shutdown is the caller's job.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
