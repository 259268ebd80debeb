package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/infra/buildinfo"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
)

var errClusterDisabled = domain.ErrNotLeader.WithDetails("cluster mode disabled")

// handleAdminStatus handles GET /admin/v1/status/summary.
func (h *Handler) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.query.RegistryInfo(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	build := buildinfo.Get()
	h.writeJSON(w, r, http.StatusOK, StatusSummaryResponse{
		Version:   build.Version,
		Commit:    build.Commit,
		Writable:  h.registry.IsWritable(),
		Clustered: h.cluster != nil,
		Registry:  info,
		Time:      time.Now().UTC(),
	})
}

// handleListAPIKeys handles GET /admin/v1/keys.
func (h *Handler) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	if h.keys == nil {
		h.writeJSON(w, r, http.StatusOK, ListAPIKeysResponse{Keys: []APIKeyResponse{}})
		return
	}

	keys, err := h.keys.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]APIKeyResponse, len(keys))
	for i, key := range keys {
		items[i] = APIKeyResponse{
			KeyID:     key.ID,
			Address:   key.Address,
			Role:      key.Role,
			Allowlist: key.Allowlist,
		}
	}
	h.writeJSON(w, r, http.StatusOK, ListAPIKeysResponse{Keys: items})
}

// handleClusterStatus handles GET /admin/v1/cluster/status.
func (h *Handler) handleClusterStatus(w http.ResponseWriter, r *http.Request) {
	if h.cluster == nil {
		WriteError(w, r, errClusterDisabled)
		return
	}

	st, err := h.cluster.Status()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, st)
}

// handleClusterJoin handles POST /admin/v1/cluster/join.
func (h *Handler) handleClusterJoin(w http.ResponseWriter, r *http.Request) {
	if h.cluster == nil {
		WriteError(w, r, errClusterDisabled)
		return
	}

	var req ClusterJoinRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.cluster.Join(req.NodeID, req.Addr); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	logger.L(r.Context()).Info("cluster member added",
		"node_id", req.NodeID,
		"addr", req.Addr)
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"node_id": req.NodeID,
		"addr":    req.Addr,
	})
}
