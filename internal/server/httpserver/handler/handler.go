package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/server/clusterserver"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
)

// DefaultWaitTimeout bounds how long POST /v1/claims with wait=true
// holds the request before answering 202.
const DefaultWaitTimeout = 30 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ClusterAdmin is the cluster surface exposed through the admin API.
type ClusterAdmin interface {
	Status() (*clusterserver.Status, error)
	Join(nodeID, addr string) error
}

// Config wires the handler to its services.
type Config struct {
	Registry *service.RegistryService
	Query    *service.QueryService

	// Keys lists configured API keys for the admin API. Optional.
	Keys service.APIKeyRepository

	// Cluster is nil when running without Raft.
	Cluster ClusterAdmin

	WaitTimeout time.Duration
	Logger      *slog.Logger
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	registry    *service.RegistryService
	query       *service.QueryService
	keys        service.APIKeyRepository
	cluster     ClusterAdmin
	waitTimeout time.Duration
	logger      *slog.Logger
	mux         *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}

	h := &Handler{
		registry:    cfg.Registry,
		query:       cfg.Query,
		keys:        cfg.Keys,
		cluster:     cfg.Cluster,
		waitTimeout: cfg.WaitTimeout,
		logger:      cfg.Logger,
		mux:         http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	// Health
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Registry
	h.mux.HandleFunc("GET /v1/registry", h.handleRegistryInfo)
	h.mux.HandleFunc("GET /v1/supply", h.handleTotalSupply)

	// Claims
	h.mux.HandleFunc("POST /v1/claims", h.handleMint)
	h.mux.HandleFunc("GET /v1/claims", h.handleListClaims)
	h.mux.HandleFunc("GET /v1/claims/{id}", h.handleGetClaim)
	h.mux.HandleFunc("GET /v1/claims/{id}/uri", h.handleTokenURI)
	h.mux.HandleFunc("GET /v1/submissions/{id}", h.handleGetSubmission)

	// Holders
	h.mux.HandleFunc("GET /v1/holders/{address}/claims", h.handleHolderClaims)
	h.mux.HandleFunc("GET /v1/holders/{address}/valid", h.handleHolderValid)

	// Admin
	h.mux.HandleFunc("GET /admin/v1/status/summary", h.handleAdminStatus)
	h.mux.HandleFunc("GET /admin/v1/keys", h.handleListAPIKeys)
	h.mux.HandleFunc("GET /admin/v1/cluster/status", h.handleClusterStatus)
	h.mux.HandleFunc("POST /admin/v1/cluster/join", h.handleClusterJoin)
}

// writeJSON writes a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsDomainError(err, "") {
		logger.L(r.Context()).Error("internal error", "path", r.URL.Path, "error", err)
	}
	WriteError(w, r, err)
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest.WithDetails("invalid request body: " + err.Error())
	}
	return nil
}

// WriteError writes err as an error envelope. Errors that are not domain
// errors are reported as CL-SYS-5000 without their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		de = domain.ErrInternalServer
	}

	message := de.Error()
	if de.Code == domain.ErrInternalServer.Code && de.Details == "" {
		message = de.Message
	}

	status := StatusForError(err)
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}

	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", de.Code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, de.Code, message))
}

// StatusForError returns the HTTP status for err. A failed submission
// reports the status of the rejection that failed it.
func StatusForError(err error) int {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	if de.Code == domain.ErrSubmissionFailed.Code {
		var cause *domain.DomainError
		if errors.As(de.Cause, &cause) {
			return StatusForError(cause)
		}
	}
	return StatusForCode(de.Code)
}

// StatusForCode maps an error code to an HTTP status by its numeric suffix.
func StatusForCode(code string) int {
	switch {
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"), strings.HasSuffix(code, "-4031"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4220"):
		return http.StatusUnprocessableEntity
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-5020"):
		return http.StatusBadGateway
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
