package clusterserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
)

// Config configures a cluster Server.
type Config struct {
	NodeID       string
	RaftBindAddr string
	RaftDataDir  string
	Bootstrap    bool

	// InMemory runs Raft without disk or network. For tests.
	InMemory bool

	// ApplyTimeout bounds how long Raft may take to accept an entry.
	ApplyTimeout time.Duration

	Logger *slog.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	if !c.InMemory {
		if c.RaftBindAddr == "" {
			return fmt.Errorf("raft_addr is required")
		}
		if c.RaftDataDir == "" {
			return fmt.Errorf("data_dir is required")
		}
	}
	return nil
}

// Server runs the Raft node that replicates one claim ledger.
type Server struct {
	cfg       Config
	fsm       *FSM
	node      *RaftNode
	committer *RaftCommitter
	logger    *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewServer creates a Server for ledger. Call Start to join Raft.
func NewServer(cfg Config, ledger *service.Ledger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cluster config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("node_id", cfg.NodeID)

	return &Server{
		cfg:    cfg,
		fsm:    NewFSM(ledger, logger),
		logger: logger,
	}, nil
}

// Start opens the Raft node and, when bootstrapping, waits until a leader is known.
func (s *Server) Start(ctx context.Context) error {
	node, err := NewRaftNode(RaftConfig{
		NodeID:    s.cfg.NodeID,
		BindAddr:  s.cfg.RaftBindAddr,
		DataDir:   s.cfg.RaftDataDir,
		Bootstrap: s.cfg.Bootstrap,
		InMemory:  s.cfg.InMemory,
		Logger:    s.logger,
	}, s.fsm)
	if err != nil {
		return err
	}
	s.node = node
	s.committer = NewRaftCommitter(node, s.cfg.ApplyTimeout, s.logger)

	go s.watchLeadership()

	if s.cfg.Bootstrap {
		if err := node.WaitForLeader(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("cluster server started", "addr", s.cfg.RaftBindAddr)
	return nil
}

func (s *Server) watchLeadership() {
	for isLeader := range s.node.LeaderCh() {
		if isLeader {
			s.logger.Info("became raft leader")
		} else {
			s.logger.Info("lost raft leadership")
		}
	}
}

// Committer returns the Raft-backed committer. Valid after Start.
func (s *Server) Committer() *RaftCommitter {
	return s.committer
}

// IsLeader reports whether this node leads the cluster.
func (s *Server) IsLeader() bool {
	return s.node != nil && s.node.IsLeader()
}

// Leader returns the current leader ID and address.
func (s *Server) Leader() (id, addr string) {
	if s.node == nil {
		return "", ""
	}
	return s.node.Leader()
}

// Status returns the Raft status of this node.
func (s *Server) Status() (*Status, error) {
	if s.node == nil {
		return nil, domain.ErrNotLeader.WithDetails("cluster not started")
	}
	return s.node.Status()
}

// Join adds a voter. Only the leader can change membership.
func (s *Server) Join(nodeID, addr string) error {
	if nodeID == "" || addr == "" {
		return domain.ErrBadRequest.WithDetails("node_id and addr are required")
	}
	if !s.IsLeader() {
		_, leader := s.Leader()
		return domain.ErrNotLeader.WithDetails("leader is " + leader)
	}
	if err := s.node.AddVoter(nodeID, addr, s.applyTimeout()); err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}
	s.logger.Info("node joined", "joined_id", nodeID, "joined_addr", addr)
	return nil
}

// Snapshot forces a Raft snapshot.
func (s *Server) Snapshot() error {
	if s.node == nil {
		return domain.ErrNotLeader.WithDetails("cluster not started")
	}
	return s.node.Snapshot()
}

// Stop shuts down the Raft node. Repeated calls are no-ops.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.node == nil {
		s.stopped = true
		return nil
	}
	s.stopped = true

	done := make(chan error, 1)
	go func() { done <- s.node.Close() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("stop cluster server: %w", ctx.Err())
	}
}

func (s *Server) applyTimeout() time.Duration {
	if s.cfg.ApplyTimeout > 0 {
		return s.cfg.ApplyTimeout
	}
	return DefaultApplyTimeout
}
