package service

import (
	"context"
	"errors"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// Page size limits for ListClaims.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// QueryService answers read-only questions against the latest committed
// state. None of its methods mutate the ledger or consult the guard.
type QueryService struct {
	repo LedgerRepository
}

// NewQueryService creates a new QueryService.
func NewQueryService(repo LedgerRepository) *QueryService {
	return &QueryService{repo: repo}
}

// ClaimVerification is the answer to VerifyClaim.
type ClaimVerification struct {
	Owner       domain.Address `json:"owner"`
	ClaimData   string         `json:"claim_data"`
	MetadataURI string         `json:"metadata_uri"`
}

// ClaimDescription is a committed token with its decoded claim data.
type ClaimDescription struct {
	Token    *domain.ClaimToken
	Metadata domain.ClaimMetadata
}

// ClaimPage is one page of ListClaims.
type ClaimPage struct {
	Claims []*domain.ClaimToken
	// NextAfter is the cursor for the following page, or 0 when done.
	NextAfter domain.TokenID
}

// RegistryInfo summarizes the registry.
type RegistryInfo struct {
	Authority   domain.Address `json:"authority"`
	Initialized bool           `json:"initialized"`
	TotalSupply uint64         `json:"total_supply"`
	NextID      domain.TokenID `json:"next_id"`
	LastCommit  uint64         `json:"last_commit"`
}

// HasValidClaim reports whether owner holds at least one claim token.
func (q *QueryService) HasValidClaim(ctx context.Context, owner string) (bool, error) {
	ids, err := q.GetUserTokens(ctx, owner)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// VerifyClaim returns the owner, claim data and metadata URI of token id.
func (q *QueryService) VerifyClaim(ctx context.Context, id domain.TokenID) (*ClaimVerification, error) {
	tok, err := q.getToken(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ClaimVerification{
		Owner:       tok.Owner,
		ClaimData:   tok.ClaimData,
		MetadataURI: tok.MetadataURI,
	}, nil
}

// GetUserTokens returns the ids minted to owner in mint order.
// An owner with no tokens gets an empty, non-nil slice.
func (q *QueryService) GetUserTokens(ctx context.Context, owner string) ([]domain.TokenID, error) {
	addr, err := domain.ParseAddress(owner)
	if err != nil {
		return nil, err
	}
	ids, err := q.repo.TokensOf(ctx, addr)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if ids == nil {
		ids = []domain.TokenID{}
	}
	return ids, nil
}

// TokenURI returns the metadata URI of token id.
func (q *QueryService) TokenURI(ctx context.Context, id domain.TokenID) (string, error) {
	tok, err := q.getToken(ctx, id)
	if err != nil {
		return "", err
	}
	return tok.MetadataURI, nil
}

// TotalSupply returns the number of tokens minted.
func (q *QueryService) TotalSupply(ctx context.Context) (uint64, error) {
	state, err := q.repo.LoadState(ctx)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return state.TotalSupply, nil
}

// GetClaim returns the full committed record of token id.
func (q *QueryService) GetClaim(ctx context.Context, id domain.TokenID) (*domain.ClaimToken, error) {
	return q.getToken(ctx, id)
}

// DescribeClaim returns token id together with its decoded claim data.
func (q *QueryService) DescribeClaim(ctx context.Context, id domain.TokenID) (*ClaimDescription, error) {
	tok, err := q.getToken(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ClaimDescription{
		Token:    tok,
		Metadata: domain.DecodeMetadata(tok.ClaimData),
	}, nil
}

// ListClaims returns up to limit tokens with ids greater than after.
func (q *QueryService) ListClaims(ctx context.Context, after domain.TokenID, limit int) (*ClaimPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	supply, err := q.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}

	if uint64(after) >= supply {
		return &ClaimPage{Claims: []*domain.ClaimToken{}}, nil
	}

	page := &ClaimPage{Claims: make([]*domain.ClaimToken, 0, limit)}
	for id := after + 1; uint64(id) <= supply && len(page.Claims) < limit; id++ {
		tok, err := q.getToken(ctx, id)
		if err != nil {
			return nil, err
		}
		page.Claims = append(page.Claims, tok)
	}

	if n := len(page.Claims); n > 0 && uint64(page.Claims[n-1].ID) < supply {
		page.NextAfter = page.Claims[n-1].ID
	}
	return page, nil
}

// RegistryInfo returns the registry summary.
func (q *QueryService) RegistryInfo(ctx context.Context) (*RegistryInfo, error) {
	state, err := q.repo.LoadState(ctx)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return &RegistryInfo{
		Authority:   state.Authority,
		Initialized: state.Initialized(),
		TotalSupply: state.TotalSupply,
		NextID:      state.NextID,
		LastCommit:  state.LastApplied,
	}, nil
}

func (q *QueryService) getToken(ctx context.Context, id domain.TokenID) (*domain.ClaimToken, error) {
	tok, err := q.repo.GetToken(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, err
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return tok, nil
}
