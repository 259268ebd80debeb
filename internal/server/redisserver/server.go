package redisserver

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/service"
)

// Config holds the RESP port configuration.
type Config struct {
	// Addr is the listen address (e.g. "127.0.0.1:6390").
	Addr string

	// TLSConfig enables TLS when non-nil.
	TLSConfig *tls.Config

	// ReadTimeout bounds reading one command once its first byte arrived (default: 30s).
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one reply (default: 30s).
	WriteTimeout time.Duration

	// IdleTimeout closes a connection idle between commands (default: 5m).
	IdleTimeout time.Duration

	// RateLimit is commands per second per client IP. Zero disables it.
	RateLimit int

	// WaitTimeout bounds CL.MINT ... WAIT (default: 10s).
	WaitTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:6390",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    1000,
		WaitTimeout:  10 * time.Second,
	}
}

// Services are the registry services the port serves.
type Services struct {
	Registry *service.RegistryService
	Query    *service.QueryService
	Auth     *service.AuthService
}

// Server serves claim queries over the Redis protocol.
type Server struct {
	cfg     Config
	handler *CommandHandler
	logger  *slog.Logger

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup

	connsMu sync.Mutex
	conns   map[*Conn]struct{}
}

// Conn is one client connection and its authentication state.
type Conn struct {
	netConn net.Conn
	r       *Reader
	w       *Writer

	principal *service.Principal
	closed    atomic.Bool
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		netConn: c,
		r:       NewReader(c),
		w:       NewWriter(c),
	}
}

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// RemoteIP returns the client IP without port.
func (c *Conn) RemoteIP() string {
	addr := c.netConn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// New creates a RESP server. Zero timeouts take their defaults.
func New(cfg *Config, svc Services, logger *slog.Logger) *Server {
	c := *DefaultConfig()
	if cfg != nil {
		c.Addr = cfg.Addr
		c.TLSConfig = cfg.TLSConfig
		c.RateLimit = cfg.RateLimit
		if cfg.ReadTimeout > 0 {
			c.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
		if cfg.WaitTimeout > 0 {
			c.WaitTimeout = cfg.WaitTimeout
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:     c,
		handler: NewCommandHandler(svc, c.RateLimit, c.WaitTimeout, logger),
		logger:  logger,
		conns:   make(map[*Conn]struct{}),
	}
}

// Listen binds the listener.
func (s *Server) Listen() error {
	var (
		ln  net.Listener
		err error
	)
	if s.cfg.TLSConfig != nil {
		ln, err = tls.Listen("tcp", s.cfg.Addr, s.cfg.TLSConfig)
	} else {
		ln, err = net.Listen("tcp", s.cfg.Addr)
	}
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("resp server listening", "addr", ln.Addr().String(), "tls", s.cfg.TLSConfig != nil)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until Shutdown. It returns nil after Shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.running.Store(true)

	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		c := newConn(nc)
		s.track(c, true)
		if !s.running.Load() {
			_ = c.Close()
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(c, false)
			s.serveConn(ctx, c)
		}()
	}
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines or ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var err error
	if s.ln != nil {
		if cerr := s.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}

	s.connsMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connsMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *Server) track(c *Conn, add bool) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer c.Close()
	log := s.logger.With("remote", c.netConn.RemoteAddr().String())

	for {
		// Idle between commands, then the tighter per-command budget.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if err := c.r.Peek(); err != nil {
			logReadError(log, err)
			return
		}
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}

		args, err := c.r.ReadCommand()
		if err != nil {
			if errors.Is(err, ErrProtocol) || errors.Is(err, ErrLimitExceeded) {
				log.Warn("closing connection on protocol error", "error", err)
				c.w.Error("ERR " + err.Error())
				s.flush(c)
				return
			}
			logReadError(log, err)
			return
		}
		if len(args) == 0 {
			continue
		}

		quit := s.handler.Handle(ctx, c, args)
		if !s.flush(c) || quit {
			return
		}
	}
}

func (s *Server) flush(c *Conn) bool {
	if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return false
	}
	return c.w.Flush() == nil
}

func logReadError(log *slog.Logger, err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.As(err, &netErr) && netErr.Timeout():
		log.Debug("connection timed out")
	default:
		log.Debug("connection read error", "error", err)
	}
}
