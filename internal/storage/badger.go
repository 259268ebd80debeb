package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
)

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("badger ledger closed")

var _ service.LedgerRepository = (*BadgerLedger)(nil)

// BadgerLedger implements service.LedgerRepository on Badger v3.
type BadgerLedger struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRewrites atomic.Uint64

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRewrites   prometheus.Counter

	closeOnce sync.Once
	closed    atomic.Bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// OpenBadgerLedger opens (or creates) a ledger database.
func OpenBadgerLedger(cfg BadgerConfig, logger *slog.Logger) (*BadgerLedger, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	l := &BadgerLedger{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.gcLoop()

	logger.Info("badger ledger opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return l, nil
}

// LoadState returns the registry state, or a fresh state for an empty database.
func (l *BadgerLedger) LoadState(_ context.Context) (*domain.RegistryState, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}

	var state *domain.RegistryState
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		state, err = readState(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SaveState persists state.
func (l *BadgerLedger) SaveState(_ context.Context, state *domain.RegistryState) error {
	if l.closed.Load() {
		return ErrClosed
	}

	return l.db.Update(func(txn *badger.Txn) error {
		current, err := readState(txn)
		if err != nil {
			return err
		}
		if current.TotalSupply != state.TotalSupply {
			return domain.ErrStorageError.WithDetails("state total supply does not match stored tokens")
		}
		return writeJSON(txn, keyState, state)
	})
}

// GetToken retrieves a token by id.
func (l *BadgerLedger) GetToken(_ context.Context, id domain.TokenID) (*domain.ClaimToken, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}

	var tok domain.ClaimToken
	err := l.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, tokenKey(id), &tok)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrTokenNotFound.WithDetails("token " + id.String())
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// TokensOf returns the ids minted to owner, oldest first.
func (l *BadgerLedger) TokensOf(_ context.Context, owner domain.Address) ([]domain.TokenID, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}

	prefix := holderPrefix(owner)
	var ids []domain.TokenID

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, idFromKey(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CommitMint writes the token, its holder entry and state in one transaction.
func (l *BadgerLedger) CommitMint(_ context.Context, token *domain.ClaimToken, state *domain.RegistryState) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if err := state.Validate(); err != nil {
		return err
	}

	return l.db.Update(func(txn *badger.Txn) error {
		current, err := readState(txn)
		if err != nil {
			return err
		}
		if token.ID != current.NextID || uint64(token.ID) != state.TotalSupply {
			return domain.ErrStorageError.WithDetails(fmt.Sprintf(
				"token %d is not the next id (next_id=%d)", token.ID, current.NextID))
		}

		if err := writeJSON(txn, tokenKey(token.ID), token); err != nil {
			return err
		}
		if err := txn.Set(holderKey(token.Owner, token.ID), nil); err != nil {
			return err
		}
		return writeJSON(txn, keyState, state)
	})
}

// Export reads the whole ledger from one consistent view.
func (l *BadgerLedger) Export(_ context.Context) (*service.LedgerSnapshot, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}

	snap := &service.LedgerSnapshot{}
	err := l.db.View(func(txn *badger.Txn) error {
		state, err := readState(txn)
		if err != nil {
			return err
		}
		snap.State = state
		snap.Tokens = make([]*domain.ClaimToken, 0, state.TotalSupply)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixToken
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var tok domain.ClaimToken
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tok)
			}); err != nil {
				return fmt.Errorf("decode token %d: %w", idFromKey(it.Item().Key()), err)
			}
			snap.Tokens = append(snap.Tokens, &tok)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore drops every key and writes snap.
func (l *BadgerLedger) Restore(_ context.Context, snap *service.LedgerSnapshot) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if err := l.db.DropAll(); err != nil {
		return fmt.Errorf("badger: drop all: %w", err)
	}

	wb := l.db.NewWriteBatch()
	defer wb.Cancel()

	for _, tok := range snap.Tokens {
		data, err := json.Marshal(tok)
		if err != nil {
			return err
		}
		if err := wb.Set(tokenKey(tok.ID), data); err != nil {
			return err
		}
		if err := wb.Set(holderKey(tok.Owner, tok.ID), nil); err != nil {
			return err
		}
	}
	data, err := json.Marshal(snap.State)
	if err != nil {
		return err
	}
	if err := wb.Set(keyState, data); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger: flush restore: %w", err)
	}

	l.logger.Info("ledger restored",
		"tokens", len(snap.Tokens),
		"last_applied", snap.State.LastApplied)
	return nil
}

// GC runs value log GC until Badger reports nothing left to rewrite.
// Returns the number of rewrites.
func (l *BadgerLedger) GC() (int, error) {
	if l.cfg.InMemory {
		return 0, nil
	}
	start := time.Now()

	rewrites := 0
	for {
		err := l.db.RunValueLogGC(l.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return rewrites, fmt.Errorf("gc: %w", err)
		}
		rewrites++
	}

	l.lastGCTime.Store(time.Now().UnixMilli())
	l.gcRewrites.Add(uint64(rewrites))
	if l.metricsGCRewrites != nil {
		l.metricsGCRewrites.Add(float64(rewrites))
	}

	l.logger.Debug("gc completed",
		"rewrites", rewrites,
		"elapsed", time.Since(start))

	return rewrites, nil
}

// Stats contains storage statistics.
type Stats struct {
	LSMSize      int64
	ValueLogSize int64
	LastGCTime   int64 // Unix milliseconds
	GCRewrites   uint64
}

// Stats returns storage statistics.
func (l *BadgerLedger) Stats() Stats {
	lsm, vlog := l.db.Size()
	return Stats{
		LSMSize:      lsm,
		ValueLogSize: vlog,
		LastGCTime:   l.lastGCTime.Load(),
		GCRewrites:   l.gcRewrites.Load(),
	}
}

// Close stops the GC loop and closes the database.
func (l *BadgerLedger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.stopCh)
		l.wg.Wait()

		if cerr := l.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
			return
		}
		l.logger.Info("badger ledger closed")
	})
	return err
}

// RegisterMetrics registers Badger size and GC metrics with reg and
// starts refreshing them. Call once, before Close.
func (l *BadgerLedger) RegisterMetrics(reg prometheus.Registerer) error {
	l.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "claimledger",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	l.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "claimledger",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	l.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "claimledger",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})
	l.metricsGCRewrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "claimledger",
		Subsystem: "badger",
		Name:      "gc_rewrites_total",
		Help:      "Value log files rewritten by Badger garbage collection",
	})

	for _, c := range []prometheus.Collector{
		l.metricsLSMSize,
		l.metricsValueLogSize,
		l.metricsLastGCTime,
		l.metricsGCRewrites,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	l.updateMetrics()
	l.wg.Add(1)
	go l.metricsUpdateLoop()
	return nil
}

func (l *BadgerLedger) updateMetrics() {
	stats := l.Stats()
	l.metricsLSMSize.Set(float64(stats.LSMSize))
	l.metricsValueLogSize.Set(float64(stats.ValueLogSize))
	if stats.LastGCTime > 0 {
		l.metricsLastGCTime.Set(float64(stats.LastGCTime) / 1000.0)
	}
}

func (l *BadgerLedger) metricsUpdateLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.updateMetrics()
		case <-l.stopCh:
			return
		}
	}
}

func (l *BadgerLedger) gcLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := l.GC(); err != nil {
				l.logger.Error("auto gc failed", "error", err)
			}
		case <-l.stopCh:
			return
		}
	}
}

func readState(txn *badger.Txn) (*domain.RegistryState, error) {
	state := domain.NewRegistryState()
	err := readJSON(txn, keyState, state)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.NewRegistryState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return state, nil
}

func readJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func writeJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
// Badger is chatty at info level, so its info lines are logged at debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
