package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// RegistryService is the write path of the registry.
//
// It validates a mint before submission, hands it to the Committer and
// tracks the resulting handle so it can be looked up by id later.
type RegistryService struct {
	ledger    *Ledger
	committer Committer
	tracker   *SubmissionTracker
	logger    *slog.Logger
	now       func() time.Time
}

// RegistryServiceConfig holds configuration for RegistryService.
type RegistryServiceConfig struct {
	// SubmissionTTL is how long a handle stays retrievable by id (default: 10m).
	SubmissionTTL time.Duration

	Logger *slog.Logger
}

// DefaultRegistryServiceConfig returns default configuration.
func DefaultRegistryServiceConfig() *RegistryServiceConfig {
	return &RegistryServiceConfig{
		SubmissionTTL: 10 * time.Minute,
	}
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(ledger *Ledger, committer Committer, config *RegistryServiceConfig) *RegistryService {
	if config == nil {
		config = DefaultRegistryServiceConfig()
	}
	if config.SubmissionTTL <= 0 {
		config.SubmissionTTL = 10 * time.Minute
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RegistryService{
		ledger:    ledger,
		committer: committer,
		tracker:   NewSubmissionTracker(config.SubmissionTTL),
		logger:    logger,
		now:       time.Now,
	}
}

// MintRequest contains parameters for a mint.
type MintRequest struct {
	Caller      domain.Address // Authenticated submitter
	Owner       string         // Recipient; parsed and normalized
	MetadataURI string
	ClaimData   string
}

// Mint submits a mint and returns its pending handle.
//
// A malformed owner or a caller other than the authority is rejected
// here, before anything is submitted. The guard runs again at commit
// time, where a rejection fails the handle instead.
func (s *RegistryService) Mint(ctx context.Context, req *MintRequest) (*Pending, error) {
	// 1. Validate owner
	owner, err := domain.ParseAddress(req.Owner)
	if err != nil {
		return nil, err
	}

	// 2. Check the guard against the latest committed state
	state, err := s.ledger.State(ctx)
	if err != nil {
		return nil, err
	}
	if err := NewAuthorityGuard(state).Authorize(req.Caller); err != nil {
		return nil, err
	}

	// 3. Submit
	cmd := domain.MintCommand{
		Caller:      req.Caller,
		Owner:       owner,
		MetadataURI: req.MetadataURI,
		ClaimData:   req.ClaimData,
		SubmittedAt: s.now().UnixMilli(),
	}
	pending, err := s.committer.SubmitMint(ctx, cmd)
	if err != nil {
		return nil, err
	}

	s.tracker.Track(pending)
	s.logger.Debug("mint submitted",
		"submission_id", pending.ID(),
		"owner", owner.String())

	return pending, nil
}

// MintAndWait submits a mint and awaits its confirmation.
func (s *RegistryService) MintAndWait(ctx context.Context, req *MintRequest) (*Confirmation, error) {
	pending, err := s.Mint(ctx, req)
	if err != nil {
		return nil, err
	}
	return pending.Await(ctx)
}

// Initialize submits registry creation with the given authority.
func (s *RegistryService) Initialize(ctx context.Context, authority string) (*Pending, error) {
	addr, err := domain.ParseAddress(authority)
	if err != nil {
		return nil, err
	}

	pending, err := s.committer.SubmitInitialize(ctx, domain.InitializeCommand{Authority: addr})
	if err != nil {
		return nil, err
	}
	s.tracker.Track(pending)
	return pending, nil
}

// EnsureInitialized initializes the registry with authority unless it
// already has that authority, and waits for the outcome.
func (s *RegistryService) EnsureInitialized(ctx context.Context, authority string) error {
	addr, err := domain.ParseAddress(authority)
	if err != nil {
		return err
	}

	state, err := s.ledger.State(ctx)
	if err != nil {
		return err
	}
	if state.Authority == addr {
		return nil
	}
	if state.Initialized() {
		return domain.ErrAuthorityAlreadySet.WithDetails("authority is " + state.Authority.String())
	}

	pending, err := s.Initialize(ctx, authority)
	if err != nil {
		return err
	}
	_, err = pending.Await(ctx)
	return err
}

// Submission returns a tracked handle by id.
func (s *RegistryService) Submission(id string) (*Pending, error) {
	p, ok := s.tracker.Get(id)
	if !ok {
		return nil, domain.ErrSubmissionNotFound.WithDetails(id)
	}
	return p, nil
}

// IsWritable reports whether this node currently accepts submissions.
func (s *RegistryService) IsWritable() bool {
	return s.committer.IsLeader()
}

// ============================================================================
// SubmissionTracker - pending handles by id
// ============================================================================

// SubmissionTracker keeps submitted handles retrievable by id for a TTL.
type SubmissionTracker struct {
	items *cache.Cache
}

// NewSubmissionTracker creates a tracker whose entries expire after ttl.
func NewSubmissionTracker(ttl time.Duration) *SubmissionTracker {
	return &SubmissionTracker{
		items: cache.New(ttl, 2*ttl),
	}
}

// Track registers p under its id.
func (t *SubmissionTracker) Track(p *Pending) {
	t.items.SetDefault(p.ID(), p)
}

// Get returns the handle with the given id.
func (t *SubmissionTracker) Get(id string) (*Pending, bool) {
	v, ok := t.items.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Pending), true
}

// Len returns the number of tracked handles, including expired ones not yet purged.
func (t *SubmissionTracker) Len() int {
	return t.items.ItemCount()
}
