package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler

	// tls is fixed at construction; http.Server.TLSConfig is mutated by
	// Serve and must not be read once serving starts.
	tls      bool
	listener net.Listener
	errCh    chan error
}

// Option configures a Server.
type Option func(*Server)

// WithTLS serves HTTPS with the given config. Certificates usually come
// from a tlscert.Reloader.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.httpServer.TLSConfig = cfg
		s.tls = cfg != nil
	}
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler, opts ...Option) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		handler: handler,
		errCh:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and serves in the background. Serve errors other
// than a clean shutdown are delivered on Err.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	if s.tls {
		ln = tls.NewListener(ln, s.httpServer.TLSConfig)
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// TLS reports whether the server serves HTTPS.
func (s *Server) TLS() bool {
	return s.tls
}

// Err returns the channel that receives a fatal serve error.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
