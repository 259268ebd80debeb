package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
)

// handleMint handles POST /v1/claims.
//
// Without wait the submission is answered with 202 and its handle. With
// wait the request blocks until the mint resolves; if the wait times
// out first, the handle is returned with 202 and the mint carries on.
func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	p, ok := service.PrincipalFrom(r.Context())
	if !ok {
		WriteError(w, r, domain.ErrAPIKeyMissing)
		return
	}

	var req MintRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	claimData := req.ClaimData
	if req.Metadata != nil {
		if req.ClaimData != "" {
			WriteError(w, r, domain.ErrBadRequest.WithDetails("claim_data and metadata are mutually exclusive"))
			return
		}
		encoded, err := domain.EncodeMetadata(req.Metadata)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		claimData = encoded
	}

	pending, err := h.registry.Mint(r.Context(), &service.MintRequest{
		Caller:      p.Address,
		Owner:       req.Owner,
		MetadataURI: req.MetadataURI,
		ClaimData:   claimData,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	logger.L(r.Context()).Info("mint submitted",
		"submission_id", pending.ID(),
		"key_id", p.KeyID)

	if !req.Wait {
		h.writeJSON(w, r, http.StatusAccepted, newSubmissionResponse(pending))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()

	if _, err := pending.Await(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.writeJSON(w, r, http.StatusAccepted, newSubmissionResponse(pending))
			return
		}
		WriteError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, newSubmissionResponse(pending))
}

// handleGetSubmission handles GET /v1/submissions/{id}.
func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	pending, err := h.registry.Submission(r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, newSubmissionResponse(pending))
}

// handleGetClaim handles GET /v1/claims/{id}.
func (h *Handler) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseTokenID(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	desc, err := h.query.DescribeClaim(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, newClaimResponse(desc.Token, desc.Metadata))
}

// handleTokenURI handles GET /v1/claims/{id}/uri.
func (h *Handler) handleTokenURI(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseTokenID(r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	uri, err := h.query.TokenURI(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, TokenURIResponse{ID: id, URI: uri})
}

// handleListClaims handles GET /v1/claims?after=N&limit=M.
func (h *Handler) handleListClaims(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var after domain.TokenID
	if s := query.Get("after"); s != "" {
		id, err := domain.ParseTokenID(s)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		after = id
	}

	limit := 0
	if s := query.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, r, domain.ErrBadRequest.WithDetails("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	page, err := h.query.ListClaims(r.Context(), after, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := ClaimListResponse{
		Claims:    make([]ClaimResponse, len(page.Claims)),
		NextAfter: page.NextAfter,
	}
	for i, tok := range page.Claims {
		resp.Claims[i] = newClaimResponse(tok, domain.DecodeMetadata(tok.ClaimData))
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
