package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Every endpoint is a short request/response
// exchange, so the timeouts are tight; nothing streams.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
