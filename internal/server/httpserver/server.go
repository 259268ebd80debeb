package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"
)

// ServerConfig configures the listener.
type ServerConfig struct {
	Addr string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// TLSConfig enables HTTPS with certificates supplied by the config,
	// e.g. a reloading certificate watcher. It takes precedence over the files.
	TLSConfig *tls.Config

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	cfg        ServerConfig
	listener   net.Listener
}

// New creates a new HTTP server.
func New(cfg ServerConfig, handler http.Handler) *Server {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 120 * time.Second
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	switch {
	case cfg.TLSConfig != nil:
		srv.TLSConfig = cfg.TLSConfig
	case cfg.TLSEnabled():
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &Server{httpServer: srv, cfg: cfg}
}

// TLSEnabled reports whether the server serves HTTPS.
func (c ServerConfig) TLSEnabled() bool {
	return c.TLSConfig != nil || (c.TLSCertFile != "" && c.TLSKeyFile != "")
}

// Listen binds the listener without serving, so callers learn the bound
// address (useful with ":0") before Serve starts.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Serve serves on the bound listener, binding first if needed. It
// returns nil after Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	var err error
	switch {
	case s.cfg.TLSConfig != nil:
		err = s.httpServer.ServeTLS(s.listener, "", "")
	case s.cfg.TLSEnabled():
		err = s.httpServer.ServeTLS(s.listener, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	default:
		err = s.httpServer.Serve(s.listener)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
