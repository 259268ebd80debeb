package localserver

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// maxLineLen bounds one request line.
	maxLineLen = 1024

	// idleTimeout closes a connection with no request for this long.
	idleTimeout = 2 * time.Minute
)

// Server is the local administration socket server.
type Server struct {
	path    string
	handler *Handler
	logger  *slog.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a server for the socket at socketPath.
func New(socketPath string, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:    socketPath,
		handler: handler,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen creates the socket. A stale socket file left by a previous
// process is replaced; any other existing file is an error.
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	if fi, err := os.Lstat(s.path); err == nil {
		if fi.Mode()&fs.ModeSocket == 0 {
			return errors.New("localserver: " + s.path + " exists and is not a socket")
		}
		if conn, err := net.DialTimeout("unix", s.path, time.Second); err == nil {
			conn.Close()
			return errors.New("localserver: " + s.path + " is in use")
		}
		if err := os.Remove(s.path); err != nil {
			return err
		}
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return err
	}
	s.listener = ln
	s.logger.Info("admin socket listening", "path", s.path)
	return nil
}

// Serve accepts connections until Shutdown. It returns nil after Shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.running.Store(true)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.track(conn, true)
		if !s.running.Load() {
			conn.Close()
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConnection(ctx, conn)
		}()
	}
}

// Shutdown closes the listener and open connections, removes the socket
// file and waits for connection goroutines or ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			closeErr = err
		}
	}

	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

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

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) && closeErr == nil {
		closeErr = err
	}
	return closeErr
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, maxLineLen), maxLineLen)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("admin socket read error", "error", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "quit") {
			return
		}
		s.logger.Info("admin command", "command", line)
		if err := s.handler.Execute(ctx, conn, line); err != nil {
			s.logger.Debug("admin socket write error", "error", err)
			return
		}
	}
}
