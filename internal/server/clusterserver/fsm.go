package clusterserver

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/hashicorp/raft"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
)

// LogEntryType defines the type of Raft log entry.
type LogEntryType uint8

const (
	// LogEntryInitialize sets the registry authority.
	LogEntryInitialize LogEntryType = 1

	// LogEntryMint mints one claim token.
	LogEntryMint LogEntryType = 2
)

// LogEntry represents a Raft log entry.
type LogEntry struct {
	Type    LogEntryType    `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeLogEntry marshals a command into log entry bytes.
func EncodeLogEntry(typ LogEntryType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(LogEntry{Type: typ, Payload: raw})
}

// ApplyResult is the FSM response for a committed entry.
//
// Err carries a rejection (unauthorized caller, invalid owner, storage
// failure). Token is set for an applied mint and nil when the entry was
// a replay the ledger had already applied.
type ApplyResult struct {
	Token *domain.ClaimToken
	State *domain.RegistryState
	Err   error
}

// FSM applies committed Raft entries to the claim ledger.
//
// Apply is deterministic: a given log replayed onto the same snapshot
// always yields the same registry.
type FSM struct {
	ledger *service.Ledger
	logger *slog.Logger
}

// NewFSM creates a new FSM over ledger.
func NewFSM(ledger *service.Ledger, logger *slog.Logger) *FSM {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSM{
		ledger: ledger,
		logger: logger,
	}
}

// Apply implements raft.FSM.
func (f *FSM) Apply(log *raft.Log) interface{} {
	var entry LogEntry
	if err := json.Unmarshal(log.Data, &entry); err != nil {
		// A corrupted log cannot be skipped without diverging from peers.
		f.logger.Error("FATAL: failed to unmarshal log entry - data corrupted",
			"error", err,
			"log_index", log.Index,
			"log_term", log.Term)
		panic(fmt.Sprintf("FSM.Apply: unmarshal failed at index=%d: %v", log.Index, err))
	}

	ctx := context.Background()

	switch entry.Type {
	case LogEntryInitialize:
		var cmd domain.InitializeCommand
		f.decodePayload(log, entry.Payload, &cmd)
		state, err := f.ledger.ApplyInitialize(ctx, log.Index, cmd)
		return &ApplyResult{State: state, Err: err}

	case LogEntryMint:
		var cmd domain.MintCommand
		f.decodePayload(log, entry.Payload, &cmd)
		token, err := f.ledger.ApplyMint(ctx, log.Index, cmd)
		if err != nil {
			f.logger.Warn("mint rejected at commit",
				"log_index", log.Index,
				"caller", cmd.Caller.String(),
				"error", err)
		}
		return &ApplyResult{Token: token, Err: err}

	default:
		f.logger.Error("FATAL: unknown log entry type",
			"type", entry.Type,
			"log_index", log.Index)
		panic(fmt.Sprintf("FSM.Apply: unknown log type %d at index=%d", entry.Type, log.Index))
	}
}

func (f *FSM) decodePayload(log *raft.Log, payload json.RawMessage, v any) {
	if err := json.Unmarshal(payload, v); err != nil {
		f.logger.Error("FATAL: failed to unmarshal log payload",
			"error", err,
			"log_index", log.Index)
		panic(fmt.Sprintf("FSM.Apply: payload unmarshal failed at index=%d: %v", log.Index, err))
	}
}

// Snapshot implements raft.FSM. The export is taken here; Persist only encodes it.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	snap, err := f.ledger.Export(context.Background())
	if err != nil {
		return nil, fmt.Errorf("export ledger: %w", err)
	}
	return &fsmSnapshot{snap: snap}, nil
}

// Restore implements raft.FSM. It replaces the whole ledger.
func (f *FSM) Restore(r io.ReadCloser) error {
	defer r.Close()

	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzReader.Close()

	var snap service.LedgerSnapshot
	if err := json.NewDecoder(gzReader).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	if err := f.ledger.Restore(context.Background(), &snap); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	f.logger.Info("ledger restored from snapshot",
		"total_supply", snap.State.TotalSupply,
		"last_applied", snap.State.LastApplied)
	return nil
}

// fsmSnapshot implements raft.FSMSnapshot.
type fsmSnapshot struct {
	snap *service.LedgerSnapshot
}

// Persist writes the gzip-compressed JSON export to sink.
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		gzWriter := gzip.NewWriter(sink)
		if err := json.NewEncoder(gzWriter).Encode(s.snap); err != nil {
			gzWriter.Close()
			return fmt.Errorf("encode snapshot: %w", err)
		}
		if err := gzWriter.Close(); err != nil {
			return fmt.Errorf("close gzip writer: %w", err)
		}
		return nil
	}()

	if err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

// Release implements raft.FSMSnapshot.
func (s *fsmSnapshot) Release() {}
