package handler

import (
	"net/http"
)

// handleRegistryInfo handles GET /v1/registry.
func (h *Handler) handleRegistryInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.query.RegistryInfo(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, info)
}

// handleTotalSupply handles GET /v1/supply.
func (h *Handler) handleTotalSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.query.TotalSupply(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, SupplyResponse{TotalSupply: supply})
}

// handleHolderClaims handles GET /v1/holders/{address}/claims.
func (h *Handler) handleHolderClaims(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("address")
	ids, err := h.query.GetUserTokens(r.Context(), owner)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, HolderClaimsResponse{
		Owner:    owner,
		TokenIDs: ids,
		Count:    len(ids),
	})
}

// handleHolderValid handles GET /v1/holders/{address}/valid.
func (h *Handler) handleHolderValid(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("address")
	valid, err := h.query.HasValidClaim(r.Context(), owner)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, HolderValidResponse{Owner: owner, Valid: valid})
}
