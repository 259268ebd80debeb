package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. The node is ready once the registry
// has an authority.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	info, err := h.query.RegistryInfo(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !info.Initialized {
		WriteError(w, r, domain.ErrRegistryNotInitialized)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":   "ready",
		"writable": h.registry.IsWritable(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
