package service

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// mockLedgerRepo is an in-memory LedgerRepository for testing.
type mockLedgerRepo struct {
	mu      sync.Mutex
	state   *domain.RegistryState
	tokens  map[domain.TokenID]*domain.ClaimToken
	holders map[domain.Address][]domain.TokenID

	commitErr error
	commits   int
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{
		state:   domain.NewRegistryState(),
		tokens:  make(map[domain.TokenID]*domain.ClaimToken),
		holders: make(map[domain.Address][]domain.TokenID),
	}
}

func (m *mockLedgerRepo) LoadState(ctx context.Context) (*domain.RegistryState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *mockLedgerRepo) SaveState(ctx context.Context, state *domain.RegistryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	return nil
}

func (m *mockLedgerRepo) GetToken(ctx context.Context, id domain.TokenID) (*domain.ClaimToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[id]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return tok.Clone(), nil
}

func (m *mockLedgerRepo) TokensOf(ctx context.Context, owner domain.Address) ([]domain.TokenID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TokenID(nil), m.holders[owner]...), nil
}

func (m *mockLedgerRepo) CommitMint(ctx context.Context, token *domain.ClaimToken, state *domain.RegistryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commits++
	m.tokens[token.ID] = token.Clone()
	m.holders[token.Owner] = append(m.holders[token.Owner], token.ID)
	m.state = state.Clone()
	return nil
}

func (m *mockLedgerRepo) Export(ctx context.Context) (*LedgerSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := &LedgerSnapshot{State: m.state.Clone()}
	for id := domain.FirstTokenID; id < m.state.NextID; id++ {
		snap.Tokens = append(snap.Tokens, m.tokens[id].Clone())
	}
	return snap, nil
}

func (m *mockLedgerRepo) Restore(ctx context.Context, snap *LedgerSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = snap.State.Clone()
	m.tokens = make(map[domain.TokenID]*domain.ClaimToken)
	m.holders = make(map[domain.Address][]domain.TokenID)
	for _, tok := range snap.Tokens {
		m.tokens[tok.ID] = tok.Clone()
		m.holders[tok.Owner] = append(m.holders[tok.Owner], tok.ID)
	}
	return nil
}

// mockAPIKeyRepo is a mock implementation of APIKeyRepository for testing.
type mockAPIKeyRepo struct {
	keys map[string]*domain.APIKey
}

func newMockAPIKeyRepo(keys ...*domain.APIKey) *mockAPIKeyRepo {
	m := &mockAPIKeyRepo{keys: make(map[string]*domain.APIKey)}
	for _, k := range keys {
		m.keys[k.ID] = k
	}
	return m
}

func (m *mockAPIKeyRepo) Get(ctx context.Context, keyID string) (*domain.APIKey, error) {
	key, ok := m.keys[keyID]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return key.Clone(), nil
}

func (m *mockAPIKeyRepo) List(ctx context.Context) ([]*domain.APIKey, error) {
	var result []*domain.APIKey
	for _, key := range m.keys {
		result = append(result, key.Clone())
	}
	return result, nil
}

// Fixture identities.
var (
	authority = domain.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	holderA   = domain.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	holderB   = domain.MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	outsider  = domain.MustParseAddress("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
)
