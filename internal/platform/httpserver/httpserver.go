package httpserver

import (
	"net/http"
	"time"
)

// New builds the registry's HTTP server. Transactions are small JSON
// bodies, so the timeouts are tight; slow-client protection comes from
// ReadHeaderTimeout.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
