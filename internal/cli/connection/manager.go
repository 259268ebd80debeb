package connection

import (
	"errors"
	"strings"
	"time"

	"github.com/yndnr/claimledger-go/internal/infra/tlsroots"
)

// Manager holds the connection used by the current invocation.
type Manager struct {
	current *Connection
	client  *HTTPClient
}

// Connection describes how to reach a claimledger server.
type Connection struct {
	Name     string
	Server   string
	APIKeyID string
	APIKey   string

	// CAFile adds a PEM bundle to the trusted roots.
	CAFile string
	// Insecure disables server certificate verification.
	Insecure bool

	Timeout time.Duration
}

// TLS reports whether the connection needs a TLS configuration.
func (c *Connection) TLS() bool {
	return strings.HasPrefix(c.Server, "https://") || c.CAFile != "" || c.Insecure
}

// NewManager creates a new connection manager.
func NewManager() *Manager {
	return &Manager{}
}

// Connect validates conn, builds its client and makes it current.
func (m *Manager) Connect(conn *Connection) error {
	if conn == nil || strings.TrimSpace(conn.Server) == "" {
		return errors.New("server address is required")
	}

	opts := []Option{WithTimeout(conn.Timeout)}
	if conn.TLS() {
		tlsCfg, err := tlsroots.LoadClientTLSConfig(conn.CAFile, conn.Insecure)
		if err != nil {
			return err
		}
		opts = append(opts, WithTLSConfig(tlsCfg))
	}

	m.current = conn
	m.client = NewHTTPClient(conn.Server, conn.APIKeyID, conn.APIKey, opts...)
	return nil
}

// Disconnect drops the current connection.
func (m *Manager) Disconnect() {
	m.current = nil
	m.client = nil
}

// Current returns the current connection.
func (m *Manager) Current() *Connection {
	return m.current
}

// Client returns the client for the current connection, or nil.
func (m *Manager) Client() *HTTPClient {
	return m.client
}

// IsConnected returns true if connected to a server.
func (m *Manager) IsConnected() bool {
	return m.current != nil
}
