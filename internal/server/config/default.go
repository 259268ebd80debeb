package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr    = "127.0.0.1:5080"
	DefaultWaitTimeout = 30 * time.Second

	DefaultRESPAddr         = "127.0.0.1:6390"
	DefaultRESPReadTimeout  = 30 * time.Second
	DefaultRESPWriteTimeout = 30 * time.Second
	DefaultRESPIdleTimeout  = 5 * time.Minute
	DefaultRESPRateLimit    = 1000

	DefaultEngine  = EngineMemory
	DefaultDataDir = "/var/lib/claimledger/data"

	DefaultGCInterval     = 10 * time.Minute
	DefaultGCThreshold    = 0.5
	DefaultCacheSizeMB    = 64
	DefaultValueLogFileMB = 256
	DefaultNumMemtables   = 2

	DefaultSubmissionTTL = 10 * time.Minute
	DefaultApplyTimeout  = 10 * time.Second
	DefaultAuthCacheTTL  = 60 * time.Second

	DefaultRaftAddr    = "127.0.0.1:7000"
	DefaultRaftDataDir = "/var/lib/claimledger/raft"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:        DefaultHTTPAddr,
				WaitTimeout: DefaultWaitTimeout,
			},
			RESP: RESPConfig{
				Addr:         DefaultRESPAddr,
				ReadTimeout:  DefaultRESPReadTimeout,
				WriteTimeout: DefaultRESPWriteTimeout,
				IdleTimeout:  DefaultRESPIdleTimeout,
				RateLimit:    DefaultRESPRateLimit,
			},
		},
		Storage: StorageSection{
			Engine:  DefaultEngine,
			DataDir: DefaultDataDir,
			Badger: BadgerSection{
				GCInterval:     DefaultGCInterval,
				GCThreshold:    DefaultGCThreshold,
				CacheSizeMB:    DefaultCacheSizeMB,
				ValueLogFileMB: DefaultValueLogFileMB,
				NumMemtables:   DefaultNumMemtables,
				SyncWrites:     true,
			},
		},
		Registry: RegistrySection{
			SubmissionTTL: DefaultSubmissionTTL,
			ApplyTimeout:  DefaultApplyTimeout,
		},
		Security: SecuritySection{
			AuthCacheTTL: DefaultAuthCacheTTL,
		},
		Cluster: ClusterSection{
			RaftAddr: DefaultRaftAddr,
			DataDir:  DefaultRaftDataDir,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
