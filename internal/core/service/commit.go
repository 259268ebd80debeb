package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// Confirmation is the terminal success outcome of a submission.
type Confirmation struct {
	// TokenID is the id allocated by a mint. Zero for initialization.
	TokenID domain.TokenID `json:"token_id,omitempty"`

	// CommitIndex is the commit marker the command was recorded under.
	CommitIndex uint64 `json:"commit_index"`

	// Token is the committed record. Nil for initialization.
	Token *domain.ClaimToken `json:"token,omitempty"`
}

// Pending is the handle returned by a submission. It resolves exactly
// once, to a Confirmation or to an error wrapping ErrSubmissionFailed.
type Pending struct {
	id          string
	kind        string
	submittedAt time.Time

	once sync.Once
	done chan struct{}
	conf *Confirmation
	err  error
}

// Submission kinds.
const (
	SubmissionInitialize = "initialize"
	SubmissionMint       = "mint"
)

// NewPending creates an unresolved handle of the given kind.
func NewPending(kind string) *Pending {
	return &Pending{
		id:          newSubmissionID(),
		kind:        kind,
		submittedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// ID returns the submission id.
func (p *Pending) ID() string { return p.id }

// Kind returns the submission kind.
func (p *Pending) Kind() string { return p.kind }

// SubmittedAt returns when the handle was created.
func (p *Pending) SubmittedAt() time.Time { return p.submittedAt }

// Done is closed once the handle resolves.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Await blocks until the handle resolves or ctx is done.
//
// Giving up on ctx does not cancel the submission; its outcome stays
// authoritative and can still be read from the handle.
func (p *Pending) Await(ctx context.Context) (*Confirmation, error) {
	select {
	case <-p.done:
		return p.conf, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status returns the outcome without blocking. done is false while unresolved.
func (p *Pending) Status() (conf *Confirmation, done bool, err error) {
	select {
	case <-p.done:
		return p.conf, true, p.err
	default:
		return nil, false, nil
	}
}

// Resolve completes the handle successfully. Later calls are ignored.
func (p *Pending) Resolve(conf *Confirmation) {
	p.once.Do(func() {
		p.conf = conf
		close(p.done)
	})
}

// Fail completes the handle with err wrapped in ErrSubmissionFailed.
// Later calls are ignored.
func (p *Pending) Fail(err error) {
	if !errors.Is(err, domain.ErrSubmissionFailed) {
		err = domain.ErrSubmissionFailed.WithCause(err)
	}
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Committer is a commit substrate: it orders submitted commands, assigns
// each a commit marker and applies them to the Ledger.
//
// Submit methods return a Pending immediately. An error is returned only
// when the command could not be submitted at all.
type Committer interface {
	SubmitInitialize(ctx context.Context, cmd domain.InitializeCommand) (*Pending, error)
	SubmitMint(ctx context.Context, cmd domain.MintCommand) (*Pending, error)

	// IsLeader reports whether this node accepts submissions.
	IsLeader() bool
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newSubmissionID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// ============================================================================
// LocalCommitter - single-process commit substrate
// ============================================================================

type localJob struct {
	pending *Pending
	init    *domain.InitializeCommand
	mint    *domain.MintCommand
}

// LocalCommitter applies commands on a single goroutine in submission
// order. Its commit marker is a sequence continuing from the ledger's
// last applied marker.
type LocalCommitter struct {
	ledger *Ledger
	logger *slog.Logger

	queue   chan localJob
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	started bool
	seq     uint64
}

// LocalCommitterConfig configures a LocalCommitter.
type LocalCommitterConfig struct {
	// QueueSize bounds the number of submitted but unapplied commands (default: 1024).
	QueueSize int

	Logger *slog.Logger
}

// NewLocalCommitter creates a LocalCommitter for ledger. Call Start before submitting.
func NewLocalCommitter(ledger *Ledger, cfg LocalCommitterConfig) *LocalCommitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LocalCommitter{
		ledger: ledger,
		logger: cfg.Logger,
		queue:  make(chan localJob, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}
}

// Start seeds the sequence from the ledger state and starts the commit loop.
func (c *LocalCommitter) Start(ctx context.Context) error {
	state, err := c.ledger.State(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	c.seq = state.LastApplied

	c.wg.Add(1)
	go c.loop()
	return nil
}

// Close stops the commit loop. Commands still queued fail.
func (c *LocalCommitter) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()

	for {
		select {
		case job := <-c.queue:
			job.pending.Fail(domain.ErrNotLeader.WithDetails("committer closed"))
		default:
			return nil
		}
	}
}

// IsLeader implements Committer. A started, open local committer always accepts writes.
func (c *LocalCommitter) IsLeader() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started && !c.closed
}

// SubmitInitialize implements Committer.
func (c *LocalCommitter) SubmitInitialize(ctx context.Context, cmd domain.InitializeCommand) (*Pending, error) {
	p := NewPending(SubmissionInitialize)
	if err := c.enqueue(ctx, localJob{pending: p, init: &cmd}); err != nil {
		return nil, err
	}
	return p, nil
}

// SubmitMint implements Committer.
func (c *LocalCommitter) SubmitMint(ctx context.Context, cmd domain.MintCommand) (*Pending, error) {
	p := NewPending(SubmissionMint)
	if err := c.enqueue(ctx, localJob{pending: p, mint: &cmd}); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *LocalCommitter) enqueue(ctx context.Context, job localJob) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started || c.closed {
		return domain.ErrNotLeader.WithDetails("committer not running")
	}

	select {
	case c.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *LocalCommitter) loop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		case job := <-c.queue:
			c.apply(job)
		}
	}
}

// apply runs detached from any caller context; a caller that stops
// awaiting does not stop the commit.
func (c *LocalCommitter) apply(job localJob) {
	c.seq++
	marker := c.seq
	ctx := context.Background()

	switch {
	case job.init != nil:
		if _, err := c.ledger.ApplyInitialize(ctx, marker, *job.init); err != nil {
			job.pending.Fail(err)
			return
		}
		job.pending.Resolve(&Confirmation{CommitIndex: marker})

	case job.mint != nil:
		token, err := c.ledger.ApplyMint(ctx, marker, *job.mint)
		if err != nil {
			c.logger.Warn("mint rejected at commit",
				"submission_id", job.pending.ID(),
				"marker", marker,
				"error", err)
			job.pending.Fail(err)
			return
		}
		if token == nil {
			job.pending.Fail(domain.ErrInternalServer.WithDetails("commit marker already applied"))
			return
		}
		job.pending.Resolve(&Confirmation{TokenID: token.ID, CommitIndex: marker, Token: token})
	}
}
