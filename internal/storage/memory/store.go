package memory

import (
	"context"
	"sync"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
)

var _ service.LedgerRepository = (*Store)(nil)

// Store is an in-memory ledger repository.
type Store struct {
	// Global lock: a mint touches tokens, holders and state together.
	mu sync.RWMutex

	state   *domain.RegistryState
	tokens  []*domain.ClaimToken // tokens[i] has id i+1
	holders *HolderIndex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		state:   domain.NewRegistryState(),
		holders: NewHolderIndex(),
	}
}

// LoadState returns a copy of the registry state.
func (s *Store) LoadState(_ context.Context) (*domain.RegistryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone(), nil
}

// SaveState replaces the registry state.
func (s *Store) SaveState(_ context.Context, state *domain.RegistryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uint64(len(s.tokens)) != state.TotalSupply {
		return domain.ErrStorageError.WithDetails("state total supply does not match stored tokens")
	}
	s.state = state.Clone()
	return nil
}

// GetToken retrieves a token by id.
func (s *Store) GetToken(_ context.Context, id domain.TokenID) (*domain.ClaimToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < domain.FirstTokenID || uint64(id) > uint64(len(s.tokens)) {
		return nil, domain.ErrTokenNotFound.WithDetails("token " + id.String())
	}
	return s.tokens[id-1].Clone(), nil
}

// TokensOf returns the ids minted to owner, oldest first.
func (s *Store) TokensOf(_ context.Context, owner domain.Address) ([]domain.TokenID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holders.TokensOf(owner), nil
}

// CommitMint stores token, indexes it and saves state as one step.
func (s *Store) CommitMint(_ context.Context, token *domain.ClaimToken, state *domain.RegistryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uint64(token.ID) != uint64(len(s.tokens))+1 {
		return domain.ErrStorageError.WithDetails("token " + token.ID.String() + " is not the next id")
	}
	if err := state.Validate(); err != nil {
		return err
	}
	if uint64(token.ID) != state.TotalSupply {
		return domain.ErrStorageError.WithDetails("state does not account for token " + token.ID.String())
	}

	s.tokens = append(s.tokens, token.Clone())
	s.holders.Append(token.Owner, token.ID)
	s.state = state.Clone()
	return nil
}

// Export returns a copy of the whole ledger.
func (s *Store) Export(_ context.Context) (*service.LedgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &service.LedgerSnapshot{
		State:  s.state.Clone(),
		Tokens: make([]*domain.ClaimToken, len(s.tokens)),
	}
	for i, tok := range s.tokens {
		snap.Tokens[i] = tok.Clone()
	}
	return snap, nil
}

// Restore replaces the ledger with snap and rebuilds the holder index.
func (s *Store) Restore(_ context.Context, snap *service.LedgerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holders.Reset()
	s.tokens = make([]*domain.ClaimToken, 0, len(snap.Tokens))
	for _, tok := range snap.Tokens {
		s.tokens = append(s.tokens, tok.Clone())
		s.holders.Append(tok.Owner, tok.ID)
	}
	s.state = snap.State.Clone()
	return nil
}

// Stats reports the store's size.
func (s *Store) Stats() (tokens, holders int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens), s.holders.Holders()
}
