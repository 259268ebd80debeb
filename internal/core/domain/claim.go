package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenID identifies a claim token. Allocated ids start at 1 and are
// strictly increasing with no gaps.
type TokenID uint64

// FirstTokenID is the id allocated by the first mint.
const FirstTokenID TokenID = 1

// ParseTokenID parses a decimal token id.
func ParseTokenID(s string) (TokenID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, ErrBadRequest.WithDetails("token id must be a decimal integer")
	}
	return TokenID(n), nil
}

// String returns the decimal form.
func (id TokenID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ClaimToken is an immutable, non-transferable record asserting an
// attested fact about its owner.
type ClaimToken struct {
	// ID is the registry-allocated identifier.
	ID TokenID `json:"id"`

	// Owner is the holder the claim was minted to.
	Owner Address `json:"owner"`

	// ClaimData is opaque to the registry; conventionally JSON metadata.
	ClaimData string `json:"claim_data"`

	// MetadataURI points at off-registry metadata.
	MetadataURI string `json:"metadata_uri"`

	// Sequence is the commit marker under which the mint was recorded.
	Sequence uint64 `json:"sequence"`

	// Issuer is the authority that submitted the mint.
	Issuer Address `json:"issuer"`

	// MintedAt is the submission time in Unix milliseconds.
	MintedAt int64 `json:"minted_at"`
}

// Clone returns a copy of the token.
func (t *ClaimToken) Clone() *ClaimToken {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Validate checks the structural integrity of a committed record.
func (t *ClaimToken) Validate() error {
	if t.ID < FirstTokenID {
		return ErrBadRequest.WithDetails("token id must be >= 1")
	}
	if !t.Owner.Valid() {
		return ErrInvalidOwner.WithDetails(string(t.Owner))
	}
	return nil
}

// RegistryState is the registry's counters and its issuance authority.
// It changes only through initialization and mint.
type RegistryState struct {
	// Authority is the single identity allowed to mint. Empty until initialized.
	Authority Address `json:"authority"`

	// NextID is the id the next mint will receive.
	NextID TokenID `json:"next_id"`

	// TotalSupply is the number of tokens ever minted.
	TotalSupply uint64 `json:"total_supply"`

	// LastApplied is the highest commit marker applied to this state.
	LastApplied uint64 `json:"last_applied"`
}

// NewRegistryState returns the state of an empty, uninitialized registry.
func NewRegistryState() *RegistryState {
	return &RegistryState{NextID: FirstTokenID}
}

// Initialized reports whether an authority has been set.
func (s *RegistryState) Initialized() bool {
	return s.Authority != ""
}

// Validate checks the counter invariant nextId == totalSupply + 1.
func (s *RegistryState) Validate() error {
	if uint64(s.NextID) != s.TotalSupply+1 {
		return ErrStorageError.WithDetails(fmt.Sprintf(
			"counter invariant violated: next_id=%d total_supply=%d", s.NextID, s.TotalSupply))
	}
	return nil
}

// Clone returns a copy of the state.
func (s *RegistryState) Clone() *RegistryState {
	c := *s
	return &c
}

// Allocate reserves the next id and advances the counters.
func (s *RegistryState) Allocate() TokenID {
	id := s.NextID
	s.NextID++
	s.TotalSupply++
	return id
}

// InitializeCommand creates the registry with its issuance authority.
type InitializeCommand struct {
	Authority Address `json:"authority"`
}

// MintCommand asks the registry to mint one claim token.
// It is what travels through the commit substrate, so every field needed
// to apply it deterministically is carried here.
type MintCommand struct {
	Caller      Address `json:"caller"`
	Owner       Address `json:"owner"`
	MetadataURI string  `json:"metadata_uri"`
	ClaimData   string  `json:"claim_data"`
	SubmittedAt int64   `json:"submitted_at"`
}

// MintedEvent is emitted once per committed mint.
type MintedEvent struct {
	Owner    Address `json:"owner"`
	TokenID  TokenID `json:"token_id"`
	Sequence uint64  `json:"sequence"`
}
