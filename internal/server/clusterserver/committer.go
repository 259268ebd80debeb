package clusterserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/raft"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
)

// DefaultApplyTimeout bounds how long Raft may take to accept an entry.
const DefaultApplyTimeout = 10 * time.Second

// RaftCommitter implements service.Committer on a RaftNode. The commit
// marker of every command is its Raft log index.
type RaftCommitter struct {
	node    *RaftNode
	timeout time.Duration
	logger  *slog.Logger
}

// NewRaftCommitter creates a committer that submits through node.
func NewRaftCommitter(node *RaftNode, timeout time.Duration, logger *slog.Logger) *RaftCommitter {
	if timeout <= 0 {
		timeout = DefaultApplyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RaftCommitter{
		node:    node,
		timeout: timeout,
		logger:  logger,
	}
}

// IsLeader implements service.Committer.
func (c *RaftCommitter) IsLeader() bool {
	return c.node.IsLeader()
}

// SubmitInitialize implements service.Committer.
func (c *RaftCommitter) SubmitInitialize(ctx context.Context, cmd domain.InitializeCommand) (*service.Pending, error) {
	return c.submit(ctx, service.SubmissionInitialize, LogEntryInitialize, cmd)
}

// SubmitMint implements service.Committer.
func (c *RaftCommitter) SubmitMint(ctx context.Context, cmd domain.MintCommand) (*service.Pending, error) {
	return c.submit(ctx, service.SubmissionMint, LogEntryMint, cmd)
}

// submit hands the entry to Raft on the caller's goroutine, which keeps
// log order equal to submission order, and resolves the handle once the
// entry is applied.
func (c *RaftCommitter) submit(ctx context.Context, kind string, typ LogEntryType, cmd any) (*service.Pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.node.IsLeader() {
		return nil, c.notLeader(nil)
	}

	data, err := EncodeLogEntry(typ, cmd)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	p := service.NewPending(kind)
	future := c.node.Apply(data, c.timeout)
	go c.await(p, future)
	return p, nil
}

func (c *RaftCommitter) await(p *service.Pending, future raft.ApplyFuture) {
	if err := future.Error(); err != nil {
		if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) {
			err = c.notLeader(err)
		}
		c.logger.Warn("raft apply failed",
			"submission_id", p.ID(),
			"error", err)
		p.Fail(err)
		return
	}

	result, ok := future.Response().(*ApplyResult)
	if !ok {
		p.Fail(domain.ErrInternalServer.WithDetails("unexpected apply response"))
		return
	}
	if result.Err != nil {
		p.Fail(result.Err)
		return
	}

	conf := &service.Confirmation{CommitIndex: future.Index()}
	if p.Kind() == service.SubmissionMint {
		if result.Token == nil {
			p.Fail(domain.ErrInternalServer.WithDetails("commit marker already applied"))
			return
		}
		conf.TokenID = result.Token.ID
		conf.Token = result.Token
	}
	p.Resolve(conf)
}

func (c *RaftCommitter) notLeader(cause error) error {
	e := domain.ErrNotLeader
	if _, addr := c.node.Leader(); addr != "" {
		e = e.WithDetails("leader is " + addr)
	}
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}
