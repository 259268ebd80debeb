package service

import (
	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// AuthorityGuard decides whether a caller may mint.
//
// Exactly one identity, fixed when the registry is initialized, is
// allowed. Reads never consult the guard.
type AuthorityGuard struct {
	authority domain.Address
}

// NewAuthorityGuard returns a guard for the given registry state.
func NewAuthorityGuard(state *domain.RegistryState) AuthorityGuard {
	if state == nil {
		return AuthorityGuard{}
	}
	return AuthorityGuard{authority: state.Authority}
}

// Authority returns the identity the guard admits, or "" before initialization.
func (g AuthorityGuard) Authority() domain.Address {
	return g.authority
}

// Authorize returns nil if caller is the authority and ErrUnauthorized otherwise.
// An uninitialized registry admits nobody.
func (g AuthorityGuard) Authorize(caller domain.Address) error {
	if g.authority == "" {
		return domain.ErrUnauthorized.WithCause(domain.ErrRegistryNotInitialized)
	}
	if caller != g.authority {
		return domain.ErrUnauthorized.WithDetails("caller " + caller.String())
	}
	return nil
}
