package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// LedgerRepository defines the storage interface for the registry ledger.
//
// Implementations must make CommitMint atomic: the token record, the
// holder index entry and the new state become visible together or not
// at all.
type LedgerRepository interface {
	// LoadState returns the current registry state.
	// An empty repository returns domain.NewRegistryState().
	LoadState(ctx context.Context) (*domain.RegistryState, error)

	// SaveState persists state without touching tokens.
	SaveState(ctx context.Context, state *domain.RegistryState) error

	// GetToken retrieves a token by id, or domain.ErrTokenNotFound.
	GetToken(ctx context.Context, id domain.TokenID) (*domain.ClaimToken, error)

	// TokensOf returns the ids minted to owner, oldest first.
	TokensOf(ctx context.Context, owner domain.Address) ([]domain.TokenID, error)

	// CommitMint stores token, appends it to the owner's index and saves state.
	CommitMint(ctx context.Context, token *domain.ClaimToken, state *domain.RegistryState) error

	// Export returns a point-in-time copy of the whole ledger.
	Export(ctx context.Context) (*LedgerSnapshot, error)

	// Restore replaces the ledger contents with snap.
	Restore(ctx context.Context, snap *LedgerSnapshot) error
}

// LedgerSnapshot is the full ledger contents. Tokens are ordered by id,
// which is also mint order, so holder indexes can be rebuilt from it.
type LedgerSnapshot struct {
	State  *domain.RegistryState `json:"state"`
	Tokens []*domain.ClaimToken  `json:"tokens"`
}

// MintObserver receives one event per committed mint.
// It is called synchronously on the apply path and must not block.
type MintObserver func(domain.MintedEvent)

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithMintObserver registers fn to be called after every committed mint.
func WithMintObserver(fn MintObserver) LedgerOption {
	return func(l *Ledger) {
		l.observers = append(l.observers, fn)
	}
}

// WithLedgerLogger sets the ledger's logger.
func WithLedgerLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// Ledger applies committed registry commands.
//
// It is the only writer of the repository. Commands reach it through a
// Committer, which assigns each one a commit marker; the ledger applies
// them in marker order and ignores markers it has already applied.
type Ledger struct {
	mu        sync.Mutex
	repo      LedgerRepository
	observers []MintObserver
	logger    *slog.Logger
}

// NewLedger creates a Ledger over repo.
func NewLedger(repo LedgerRepository, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		repo:   repo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Repository returns the underlying repository for read paths.
func (l *Ledger) Repository() LedgerRepository {
	return l.repo
}

// State returns a copy of the current registry state.
func (l *Ledger) State(ctx context.Context) (*domain.RegistryState, error) {
	state, err := l.repo.LoadState(ctx)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return state, nil
}

// ApplyInitialize sets the registry authority under commit marker.
//
// Re-initializing with the same authority is a no-op; a different
// authority fails with ErrAuthorityAlreadySet. Returns (nil, nil) for a
// marker that was already applied.
func (l *Ledger) ApplyInitialize(ctx context.Context, marker uint64, cmd domain.InitializeCommand) (*domain.RegistryState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.repo.LoadState(ctx)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if marker <= state.LastApplied {
		return nil, nil
	}

	if !cmd.Authority.Valid() {
		return nil, domain.ErrInvalidOwner.WithDetails("authority " + string(cmd.Authority))
	}

	if state.Initialized() {
		if state.Authority == cmd.Authority {
			return state, nil
		}
		return nil, domain.ErrAuthorityAlreadySet.WithDetails("authority is " + state.Authority.String())
	}

	next := state.Clone()
	next.Authority = cmd.Authority
	next.LastApplied = marker
	if err := l.repo.SaveState(ctx, next); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	l.logger.Info("registry initialized",
		"authority", next.Authority.String(),
		"marker", marker)

	return next.Clone(), nil
}

// ApplyMint mints one claim token under commit marker.
//
// The guard is evaluated against the state being committed to, so a
// command that was authorized at submission can still be rejected here.
// A rejected command leaves the state unchanged. Returns (nil, nil) for a
// marker that was already applied.
func (l *Ledger) ApplyMint(ctx context.Context, marker uint64, cmd domain.MintCommand) (*domain.ClaimToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 1. Load state and skip replayed entries
	state, err := l.repo.LoadState(ctx)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if marker <= state.LastApplied {
		return nil, nil
	}

	// 2. Guard and owner checks
	if err := NewAuthorityGuard(state).Authorize(cmd.Caller); err != nil {
		return nil, err
	}
	if !cmd.Owner.Valid() {
		return nil, domain.ErrInvalidOwner.WithDetails(string(cmd.Owner))
	}

	// 3. Allocate and build the record
	next := state.Clone()
	id := next.Allocate()
	next.LastApplied = marker

	token := &domain.ClaimToken{
		ID:          id,
		Owner:       cmd.Owner,
		ClaimData:   cmd.ClaimData,
		MetadataURI: cmd.MetadataURI,
		Sequence:    marker,
		Issuer:      cmd.Caller,
		MintedAt:    cmd.SubmittedAt,
	}

	// 4. Record, index and counters in one unit
	if err := l.repo.CommitMint(ctx, token, next); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}

	// 5. Emit
	event := domain.MintedEvent{Owner: token.Owner, TokenID: token.ID, Sequence: marker}
	for _, fn := range l.observers {
		fn(event)
	}

	return token.Clone(), nil
}

// Export returns a snapshot of the ledger.
func (l *Ledger) Export(ctx context.Context) (*LedgerSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.repo.Export(ctx)
}

// Restore replaces the ledger contents with snap after checking its counters.
func (l *Ledger) Restore(ctx context.Context, snap *LedgerSnapshot) error {
	if snap == nil || snap.State == nil {
		return domain.ErrStorageError.WithDetails("empty snapshot")
	}
	if err := snap.State.Validate(); err != nil {
		return err
	}
	if uint64(len(snap.Tokens)) != snap.State.TotalSupply {
		return domain.ErrStorageError.WithDetails("snapshot token count does not match total supply")
	}
	for i, tok := range snap.Tokens {
		if tok.ID != domain.TokenID(i+1) {
			return domain.ErrStorageError.WithDetails("snapshot token ids are not contiguous")
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.repo.Restore(ctx, snap)
}
