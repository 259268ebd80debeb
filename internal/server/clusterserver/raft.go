package clusterserver

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// RaftConfig configures the Raft node.
type RaftConfig struct {
	// NodeID is the unique node identifier.
	NodeID string

	// BindAddr is the address to bind for Raft communication.
	BindAddr string

	// DataDir holds the BoltDB log/stable stores and snapshots.
	DataDir string

	// Bootstrap forms a new single-voter cluster on first start.
	Bootstrap bool

	// InMemory uses in-memory stores and transport. No network, no disk.
	InMemory bool

	Logger *slog.Logger
}

// RaftNode wraps hashicorp/raft for the claim ledger.
type RaftNode struct {
	raft      *raft.Raft
	transport raft.Transport
	fsm       *FSM
	nodeID    string
	logger    *slog.Logger

	logStore      raft.LogStore
	stableStore   raft.StableStore
	snapshotStore raft.SnapshotStore

	leaderCh chan bool
}

// NewRaftNode creates a new Raft node.
func NewRaftNode(cfg RaftConfig, fsm *FSM) (*RaftNode, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NodeID == "" {
		return nil, fmt.Errorf("raft: node_id is required")
	}

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(cfg.NodeID)
	raftConfig.Logger = newHCLogAdapter(cfg.Logger, "raft")

	raftConfig.HeartbeatTimeout = 1000 * time.Millisecond
	raftConfig.ElectionTimeout = 1000 * time.Millisecond
	raftConfig.CommitTimeout = 50 * time.Millisecond
	raftConfig.LeaderLeaseTimeout = 500 * time.Millisecond

	node := &RaftNode{
		fsm:      fsm,
		nodeID:   cfg.NodeID,
		logger:   cfg.Logger,
		leaderCh: make(chan bool, 10),
	}
	raftConfig.NotifyCh = node.leaderCh

	var err error
	if cfg.InMemory {
		err = node.openInMemory(cfg)
	} else {
		err = node.openDurable(cfg)
	}
	if err != nil {
		return nil, err
	}

	r, err := raft.NewRaft(raftConfig, fsm, node.logStore, node.stableStore, node.snapshotStore, node.transport)
	if err != nil {
		node.closeStores()
		return nil, fmt.Errorf("create raft: %w", err)
	}
	node.raft = r

	if cfg.Bootstrap {
		if err := node.bootstrap(); err != nil {
			node.Close()
			return nil, err
		}
	}

	cfg.Logger.Info("raft node created",
		"node_id", cfg.NodeID,
		"addr", string(node.transport.LocalAddr()),
		"bootstrap", cfg.Bootstrap,
		"in_memory", cfg.InMemory)

	return node, nil
}

func (n *RaftNode) openInMemory(cfg RaftConfig) error {
	store := raft.NewInmemStore()
	_, transport := raft.NewInmemTransport(raft.ServerAddress(cfg.BindAddr))

	n.logStore = store
	n.stableStore = store
	n.snapshotStore = raft.NewInmemSnapshotStore()
	n.transport = transport
	return nil
}

func (n *RaftNode) openDurable(cfg RaftConfig) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("raft: data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("resolve bind addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	n.transport = transport

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		n.closeStores()
		return fmt.Errorf("create log store: %w", err)
	}
	n.logStore = logStore

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		n.closeStores()
		return fmt.Errorf("create stable store: %w", err)
	}
	n.stableStore = stableStore

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 3, os.Stderr)
	if err != nil {
		n.closeStores()
		return fmt.Errorf("create snapshot store: %w", err)
	}
	n.snapshotStore = snapshotStore
	return nil
}

// bootstrap forms a single-voter cluster. A node restarted with existing
// state keeps that state.
func (n *RaftNode) bootstrap() error {
	hasState, err := raft.HasExistingState(n.logStore, n.stableStore, n.snapshotStore)
	if err != nil {
		return fmt.Errorf("check existing state: %w", err)
	}
	if hasState {
		n.logger.Info("raft state exists, skipping bootstrap", "node_id", n.nodeID)
		return nil
	}

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{
				ID:      raft.ServerID(n.nodeID),
				Address: n.transport.LocalAddr(),
			},
		},
	}
	if err := n.raft.BootstrapCluster(configuration).Error(); err != nil {
		return fmt.Errorf("bootstrap cluster: %w", err)
	}

	n.logger.Info("raft cluster bootstrapped",
		"node_id", n.nodeID,
		"addr", string(n.transport.LocalAddr()))
	return nil
}

// Apply enqueues data for replication and returns the future without waiting.
func (n *RaftNode) Apply(data []byte, timeout time.Duration) raft.ApplyFuture {
	return n.raft.Apply(data, timeout)
}

// IsLeader returns true if this node is the Raft leader.
func (n *RaftNode) IsLeader() bool {
	return n.raft.State() == raft.Leader
}

// Leader returns the current leader ID and address.
func (n *RaftNode) Leader() (id, addr string) {
	a, i := n.raft.LeaderWithID()
	return string(i), string(a)
}

// WaitForLeader blocks until any node is known as leader or ctx is done.
func (n *RaftNode) WaitForLeader(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if id, _ := n.Leader(); id != "" {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for leader: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// AddVoter adds a voting member to the Raft cluster.
func (n *RaftNode) AddVoter(nodeID, addr string, timeout time.Duration) error {
	f := n.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, timeout)
	if err := f.Error(); err != nil {
		return fmt.Errorf("add voter: %w", err)
	}
	return nil
}

// RemoveServer removes a server from the Raft cluster.
func (n *RaftNode) RemoveServer(nodeID string, timeout time.Duration) error {
	f := n.raft.RemoveServer(raft.ServerID(nodeID), 0, timeout)
	if err := f.Error(); err != nil {
		return fmt.Errorf("remove server: %w", err)
	}
	return nil
}

// Snapshot triggers a snapshot.
func (n *RaftNode) Snapshot() error {
	if err := n.raft.Snapshot().Error(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// ServerInfo describes one member of the Raft configuration.
type ServerInfo struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Suffrage string `json:"suffrage"`
	Leader   bool   `json:"leader"`
}

// Status is a point-in-time view of the node.
type Status struct {
	NodeID       string       `json:"node_id"`
	State        string       `json:"state"`
	LeaderID     string       `json:"leader_id"`
	LeaderAddr   string       `json:"leader_addr"`
	LastIndex    uint64       `json:"last_index"`
	AppliedIndex uint64       `json:"applied_index"`
	Servers      []ServerInfo `json:"servers"`
}

// Status returns the node's Raft status.
func (n *RaftNode) Status() (*Status, error) {
	leaderID, leaderAddr := n.Leader()
	st := &Status{
		NodeID:       n.nodeID,
		State:        n.raft.State().String(),
		LeaderID:     leaderID,
		LeaderAddr:   leaderAddr,
		LastIndex:    n.raft.LastIndex(),
		AppliedIndex: n.raft.AppliedIndex(),
	}

	f := n.raft.GetConfiguration()
	if err := f.Error(); err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	for _, srv := range f.Configuration().Servers {
		st.Servers = append(st.Servers, ServerInfo{
			ID:       string(srv.ID),
			Address:  string(srv.Address),
			Suffrage: srv.Suffrage.String(),
			Leader:   string(srv.ID) == leaderID,
		})
	}
	return st, nil
}

// LeaderCh returns a channel that notifies on leadership changes of this node.
func (n *RaftNode) LeaderCh() <-chan bool {
	return n.leaderCh
}

// Close gracefully shuts down the Raft node.
func (n *RaftNode) Close() error {
	n.logger.Info("shutting down raft node")

	if n.raft != nil {
		if err := n.raft.Shutdown().Error(); err != nil {
			n.logger.Error("raft shutdown failed", "error", err)
		}
	}
	n.closeStores()
	close(n.leaderCh)

	n.logger.Info("raft node shutdown complete")
	return nil
}

func (n *RaftNode) closeStores() {
	// FileSnapshotStore and the in-memory stores have nothing to close.
	if s, ok := n.stableStore.(*raftboltdb.BoltStore); ok {
		if err := s.Close(); err != nil {
			n.logger.Error("close stable store failed", "error", err)
		}
	}
	if s, ok := n.logStore.(*raftboltdb.BoltStore); ok {
		if err := s.Close(); err != nil {
			n.logger.Error("close log store failed", "error", err)
		}
	}
	if c, ok := n.transport.(io.Closer); ok {
		if err := c.Close(); err != nil {
			n.logger.Error("close transport failed", "error", err)
		}
	}
}

// hclogAdapter forwards hashicorp/go-hclog calls to slog.
type hclogAdapter struct {
	logger *slog.Logger
	name   string
	args   []any
}

func newHCLogAdapter(logger *slog.Logger, name string) *hclogAdapter {
	return &hclogAdapter{logger: logger.With("component", name), name: name}
}

func (l *hclogAdapter) Log(level hclog.Level, msg string, args ...any) {
	switch level {
	case hclog.Trace, hclog.Debug:
		l.logger.Debug(msg, args...)
	case hclog.Warn:
		l.logger.Warn(msg, args...)
	case hclog.Error:
		l.logger.Error(msg, args...)
	default:
		l.logger.Info(msg, args...)
	}
}

func (l *hclogAdapter) Trace(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *hclogAdapter) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *hclogAdapter) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *hclogAdapter) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *hclogAdapter) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *hclogAdapter) enabled(level slog.Level) bool {
	return l.logger.Enabled(context.Background(), level)
}

func (l *hclogAdapter) IsTrace() bool { return false }
func (l *hclogAdapter) IsDebug() bool { return l.enabled(slog.LevelDebug) }
func (l *hclogAdapter) IsInfo() bool  { return l.enabled(slog.LevelInfo) }
func (l *hclogAdapter) IsWarn() bool  { return l.enabled(slog.LevelWarn) }
func (l *hclogAdapter) IsError() bool { return l.enabled(slog.LevelError) }

func (l *hclogAdapter) ImpliedArgs() []any { return l.args }

func (l *hclogAdapter) With(args ...any) hclog.Logger {
	return &hclogAdapter{
		logger: l.logger.With(args...),
		name:   l.name,
		args:   append(append([]any{}, l.args...), args...),
	}
}

func (l *hclogAdapter) Name() string { return l.name }

func (l *hclogAdapter) Named(name string) hclog.Logger {
	full := name
	if l.name != "" {
		full = l.name + "." + name
	}
	return &hclogAdapter{logger: l.logger.With("subsystem", name), name: full, args: l.args}
}

func (l *hclogAdapter) ResetNamed(name string) hclog.Logger {
	return &hclogAdapter{logger: l.logger.With("subsystem", name), name: name, args: l.args}
}

// SetLevel is a no-op; the level follows the slog handler.
func (l *hclogAdapter) SetLevel(hclog.Level) {}

func (l *hclogAdapter) GetLevel() hclog.Level {
	switch {
	case l.enabled(slog.LevelDebug):
		return hclog.Debug
	case l.enabled(slog.LevelInfo):
		return hclog.Info
	case l.enabled(slog.LevelWarn):
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (l *hclogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return slog.NewLogLogger(l.logger.Handler(), slog.LevelInfo)
}

func (l *hclogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return l.StandardLogger(opts).Writer()
}
