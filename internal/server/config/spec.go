package config

import (
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// ServerConfig is the root configuration for claimledger-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Registry RegistrySection `koanf:"registry"`
	Security SecuritySection `koanf:"security"`
	Cluster  ClusterSection  `koanf:"cluster"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	RESP  RESPConfig  `koanf:"resp"`
	Local LocalConfig `koanf:"local"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// RateLimit is requests per second per client IP. 0 disables it.
	RateLimit int `koanf:"rate_limit"`

	// TrustedProxies lists proxy IPs/CIDRs whose X-Forwarded-For is
	// believed. Empty means the TCP peer is always the client.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// WaitTimeout bounds POST /v1/claims with wait=true.
	WaitTimeout time.Duration `koanf:"wait_timeout"`

	CORSAllowedOrigins  []string `koanf:"cors_allowed_origins"`
	MetricsAuthRequired bool     `koanf:"metrics_auth_required"`
	EnableAudit         bool     `koanf:"enable_audit"`
}

// RESPConfig configures the Redis-protocol query port.
type RESPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	// TLS reuses the HTTP server certificate.
	TLS bool `koanf:"tls"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is commands per second per client IP. 0 disables it.
	RateLimit int `koanf:"rate_limit"`
}

// LocalConfig configures the local admin socket.
type LocalConfig struct {
	// SocketPath is the unix socket path. Empty disables the socket.
	SocketPath string `koanf:"socket_path"`
}

// Storage engines.
const (
	EngineMemory = "memory"
	EngineBadger = "badger"
)

// StorageSection configures the ledger repository.
type StorageSection struct {
	// Engine is "memory" or "badger".
	Engine  string        `koanf:"engine"`
	DataDir string        `koanf:"data_dir"`
	Badger  BadgerSection `koanf:"badger"`
}

// BadgerSection tunes the badger engine.
type BadgerSection struct {
	GCInterval     time.Duration `koanf:"gc_interval"`
	GCThreshold    float64       `koanf:"gc_threshold"`
	CacheSizeMB    int64         `koanf:"cache_size_mb"`
	ValueLogFileMB int64         `koanf:"value_log_file_mb"`
	NumMemtables   int           `koanf:"num_memtables"`
	SyncWrites     bool          `koanf:"sync_writes"`
}

// RegistrySection configures the registry itself.
type RegistrySection struct {
	// Authority is the address allowed to mint. The registry is
	// initialized with it at start-up if it has no authority yet.
	Authority string `koanf:"authority"`

	// SubmissionTTL is how long a pending handle stays retrievable.
	SubmissionTTL time.Duration `koanf:"submission_ttl"`

	// ApplyTimeout bounds how long the commit substrate may take to accept a command.
	ApplyTimeout time.Duration `koanf:"apply_timeout"`
}

// SecuritySection configures authentication.
type SecuritySection struct {
	APIKeys []domain.APIKey `koanf:"api_keys"`

	// GlobalAllowlist restricts every key to these IPs or CIDRs.
	GlobalAllowlist []string `koanf:"global_allowlist"`

	// AuthCacheTTL is how long a verified secret skips Argon2.
	AuthCacheTTL time.Duration `koanf:"auth_cache_ttl"`
}

// ClusterSection configures Raft replication.
type ClusterSection struct {
	Enabled bool `koanf:"enabled"`

	// NodeID is the unique identifier for this node.
	// If empty, a random ID is generated at startup.
	NodeID string `koanf:"node_id"`

	// RaftAddr is the Raft TCP bind address (e.g., "192.168.1.10:7000").
	RaftAddr string `koanf:"raft_addr"`

	// DataDir holds the Raft log, stable store and snapshots.
	DataDir string `koanf:"data_dir"`

	// Bootstrap makes this node form a new single-voter cluster.
	// Other nodes join through POST /admin/v1/cluster/join.
	Bootstrap bool `koanf:"bootstrap"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
