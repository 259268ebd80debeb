package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

var (
	authority = domain.MustParseAddress("0x1111111111111111111111111111111111111111")
	holderA   = domain.MustParseAddress("0x2222222222222222222222222222222222222222")
)

// mockServer is an httptest server with per-route handlers.
type mockServer struct {
	*httptest.Server
	mux *http.ServeMux

	mu   sync.Mutex
	hits map[string]int
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{
		mux:  http.NewServeMux(),
		hits: make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := m.mux.Handler(r)
		m.mu.Lock()
		m.hits[pattern]++
		m.mu.Unlock()
		m.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for a ServeMux pattern such as "GET /v1/registry".
func (m *mockServer) handle(pattern string, h http.HandlerFunc) {
	m.mux.HandleFunc(pattern, h)
}

// handleData registers a handler answering with a fixed payload.
func (m *mockServer) handleData(pattern string, status int, data any) {
	m.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, status, data)
	})
}

func (m *mockServer) count(pattern string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[pattern]
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       "OK",
		"message":    "Success",
		"request_id": "req-test",
		"timestamp":  0,
		"data":       data,
	})
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "req-test",
	})
}

type runResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI runs the full application with an isolated config file.
// Global flags go before args, as on a command line.
func runCLI(t *testing.T, configPath string, args ...string) runResult {
	t.Helper()

	app := App()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"claimledger-cli", "--config", configPath}, args...)
	err := app.Run(full)
	return runResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

// run runs the CLI against srv.
func (m *mockServer) run(t *testing.T, args ...string) runResult {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "cli.yaml")
	return runCLI(t, cfg, append([]string{"--server", m.URL, "-k", "issuer-1", "-K", "clas_test"}, args...)...)
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("decode output: %v\n%s", err, s)
	}
}
