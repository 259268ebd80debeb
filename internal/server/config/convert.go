package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/server/clusterserver"
	"github.com/yndnr/claimledger-go/internal/server/redisserver"
	"github.com/yndnr/claimledger-go/internal/storage"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
)

// ToClusterConfig converts ServerConfig to clusterserver.Config,
// generating a node ID when none is configured.
func ToClusterConfig(cfg *ServerConfig, log *slog.Logger) (clusterserver.Config, error) {
	if cfg == nil {
		return clusterserver.Config{}, fmt.Errorf("server config is nil")
	}

	nodeID := cfg.Cluster.NodeID
	if nodeID == "" {
		generated, err := generateNodeID()
		if err != nil {
			return clusterserver.Config{}, fmt.Errorf("generate node ID: %w", err)
		}
		nodeID = generated
		log.Info("generated cluster node ID", "node_id", nodeID)
	}

	return clusterserver.Config{
		NodeID:       nodeID,
		RaftBindAddr: cfg.Cluster.RaftAddr,
		RaftDataDir:  cfg.Cluster.DataDir,
		Bootstrap:    cfg.Cluster.Bootstrap,
		ApplyTimeout: cfg.Registry.ApplyTimeout,
		Logger:       log,
	}, nil
}

// ToBadgerConfig converts the storage section to storage.BadgerConfig.
// With Raft enabled the log is the durable record, so per-commit fsync
// follows the configured value only in standalone mode.
func ToBadgerConfig(cfg *ServerConfig) storage.BadgerConfig {
	b := cfg.Storage.Badger
	out := storage.DefaultBadgerConfig(cfg.Storage.DataDir)
	if b.GCInterval > 0 {
		out.GCInterval = b.GCInterval
	}
	if b.GCThreshold > 0 {
		out.GCThreshold = b.GCThreshold
	}
	if b.CacheSizeMB > 0 {
		out.CacheSize = b.CacheSizeMB << 20
	}
	if b.ValueLogFileMB > 0 {
		out.ValueLogFileSize = b.ValueLogFileMB << 20
	}
	if b.NumMemtables > 0 {
		out.NumMemtables = b.NumMemtables
	}
	out.SyncWrites = b.SyncWrites && !cfg.Cluster.Enabled
	return out
}

// ToAuthConfig converts the security section to service.AuthServiceConfig.
func ToAuthConfig(cfg *ServerConfig) *service.AuthServiceConfig {
	return &service.AuthServiceConfig{
		CacheTTL:        cfg.Security.AuthCacheTTL,
		GlobalAllowlist: cfg.Security.GlobalAllowlist,
	}
}

// ToRESPConfig converts the RESP section to redisserver.Config. The TLS
// configuration is attached by the caller, which owns the certificate watcher.
func ToRESPConfig(cfg *ServerConfig) *redisserver.Config {
	r := cfg.Server.RESP
	return &redisserver.Config{
		Addr:         r.Addr,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
		IdleTimeout:  r.IdleTimeout,
		RateLimit:    r.RateLimit,
		WaitTimeout:  cfg.Server.HTTP.WaitTimeout,
	}
}

// ToLoggerConfig converts the log section to logger.Config.
func ToLoggerConfig(cfg *ServerConfig) logger.Config {
	out := logger.DefaultConfig()
	out.Level = cfg.Log.Level
	out.Format = cfg.Log.Format
	return out
}

// generateNodeID generates a unique node identifier.
//
// Format: clnode-<16 hex chars> (e.g., "clnode-a1b2c3d4e5f67890")
func generateNodeID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "clnode-" + hex.EncodeToString(buf), nil
}
