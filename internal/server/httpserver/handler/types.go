package handler

import (
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// MintRequest is the request body for POST /v1/claims.
//
// Claim data is given either verbatim as ClaimData or as a Metadata
// object, which is serialized to JSON. Not both.
type MintRequest struct {
	Owner       string                     `json:"owner"`
	MetadataURI string                     `json:"metadata_uri"`
	ClaimData   string                     `json:"claim_data,omitempty"`
	Metadata    *domain.StructuredMetadata `json:"metadata,omitempty"`

	// Wait holds the request until the mint is confirmed or fails.
	Wait bool `json:"wait,omitempty"`
}

// Submission statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// SubmissionResponse describes a pending handle. Returned by
// POST /v1/claims and GET /v1/submissions/{id}.
type SubmissionResponse struct {
	SubmissionID string         `json:"submission_id"`
	Kind         string         `json:"kind"`
	Status       string         `json:"status"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	TokenID      domain.TokenID `json:"token_id,omitempty"`
	CommitIndex  uint64         `json:"commit_index,omitempty"`
	Error        string         `json:"error,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
}

func newSubmissionResponse(p *service.Pending) SubmissionResponse {
	resp := SubmissionResponse{
		SubmissionID: p.ID(),
		Kind:         p.Kind(),
		Status:       StatusPending,
		SubmittedAt:  p.SubmittedAt().UTC(),
	}

	conf, done, err := p.Status()
	switch {
	case !done:
	case err != nil:
		resp.Status = StatusFailed
		resp.Error = err.Error()
		resp.ErrorCode = domain.GetErrorCode(err)
	default:
		resp.Status = StatusConfirmed
		resp.TokenID = conf.TokenID
		resp.CommitIndex = conf.CommitIndex
	}
	return resp
}

// ClaimResponse is a committed token with its decoded metadata.
type ClaimResponse struct {
	ID          domain.TokenID `json:"id"`
	Owner       domain.Address `json:"owner"`
	ClaimData   string         `json:"claim_data"`
	MetadataURI string         `json:"metadata_uri"`
	Sequence    uint64         `json:"sequence"`
	Issuer      domain.Address `json:"issuer"`
	MintedAt    time.Time      `json:"minted_at"`

	// Structured reports whether ClaimData decoded as claim metadata.
	Structured bool                       `json:"structured"`
	Metadata   *domain.StructuredMetadata `json:"metadata,omitempty"`
}

func newClaimResponse(tok *domain.ClaimToken, meta domain.ClaimMetadata) ClaimResponse {
	resp := ClaimResponse{
		ID:          tok.ID,
		Owner:       tok.Owner,
		ClaimData:   tok.ClaimData,
		MetadataURI: tok.MetadataURI,
		Sequence:    tok.Sequence,
		Issuer:      tok.Issuer,
		MintedAt:    time.UnixMilli(tok.MintedAt).UTC(),
	}
	if sm, ok := meta.(*domain.StructuredMetadata); ok {
		resp.Structured = true
		resp.Metadata = sm
	}
	return resp
}

// ClaimListResponse is the response body for GET /v1/claims.
type ClaimListResponse struct {
	Claims    []ClaimResponse `json:"claims"`
	NextAfter domain.TokenID  `json:"next_after,omitempty"`
}

// TokenURIResponse is the response body for GET /v1/claims/{id}/uri.
type TokenURIResponse struct {
	ID  domain.TokenID `json:"id"`
	URI string         `json:"uri"`
}

// SupplyResponse is the response body for GET /v1/supply.
type SupplyResponse struct {
	TotalSupply uint64 `json:"total_supply"`
}

// HolderClaimsResponse is the response body for GET /v1/holders/{address}/claims.
type HolderClaimsResponse struct {
	Owner    string           `json:"owner"`
	TokenIDs []domain.TokenID `json:"token_ids"`
	Count    int              `json:"count"`
}

// HolderValidResponse is the response body for GET /v1/holders/{address}/valid.
type HolderValidResponse struct {
	Owner string `json:"owner"`
	Valid bool   `json:"valid"`
}

// ClusterJoinRequest is the request body for POST /admin/v1/cluster/join.
type ClusterJoinRequest struct {
	NodeID string `json:"node_id"`
	Addr   string `json:"addr"`
}

// APIKeyResponse describes a configured API key. Secrets are never returned.
type APIKeyResponse struct {
	KeyID     string         `json:"key_id"`
	Address   domain.Address `json:"address"`
	Role      domain.Role    `json:"role"`
	Allowlist []string       `json:"allowlist,omitempty"`
}

// ListAPIKeysResponse is the response body for GET /admin/v1/keys.
type ListAPIKeysResponse struct {
	Keys []APIKeyResponse `json:"keys"`
}

// StatusSummaryResponse is the response body for GET /admin/v1/status/summary.
type StatusSummaryResponse struct {
	Version   string                `json:"version"`
	Commit    string                `json:"commit"`
	Writable  bool                  `json:"writable"`
	Clustered bool                  `json:"clustered"`
	Registry  *service.RegistryInfo `json:"registry"`
	Time      time.Time             `json:"time"`
}
