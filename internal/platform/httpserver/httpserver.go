// Package httpserver builds the gateway's http.Server. Timeouts are sized
// for its two client populations: the registration backend, which holds
// keep-alive connections while it drives verification sessions, and the
// provider's webhook deliveries, which are small signed POSTs.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 2 * time.Minute

	// Webhook bodies are capped at 1 MiB downstream; headers never
	// legitimately approach this.
	maxHeaderBytes = 64 << 10
)

// New wraps the router in a server with the gateway's timeouts applied.
// WriteTimeout stays unset; per-route deadlines come from the router's
// timeout middleware so slow verification checks get their own deadline.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}
