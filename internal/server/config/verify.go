package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyRegistry(&cfg.Registry); err != nil {
		return err
	}
	if err := verifySecurity(&cfg.Security); err != nil {
		return err
	}
	if err := verifyCluster(&cfg.Cluster); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.http tls file: %w", err)
		}
	}
	if cfg.HTTP.RateLimit < 0 {
		return errors.New("server.http.rate_limit must not be negative")
	}
	for _, entry := range cfg.HTTP.TrustedProxies {
		if !validIPOrCIDR(entry) {
			return fmt.Errorf("server.http.trusted_proxies: invalid entry %q", entry)
		}
	}

	if cfg.RESP.Enabled {
		if _, _, err := net.SplitHostPort(cfg.RESP.Addr); err != nil {
			return fmt.Errorf("server.resp.addr: %w", err)
		}
		if cfg.RESP.Addr == cfg.HTTP.Addr {
			return errors.New("server.resp.addr must differ from server.http.addr")
		}
		if cfg.RESP.TLS && cfg.HTTP.TLSCertFile == "" {
			return errors.New("server.resp.tls requires server.http.tls_cert_file")
		}
		if cfg.RESP.RateLimit < 0 {
			return errors.New("server.resp.rate_limit must not be negative")
		}
	}

	if p := cfg.Local.SocketPath; p != "" && !filepath.IsAbs(p) {
		return fmt.Errorf("server.local.socket_path must be absolute, got %q", p)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case EngineMemory:
		return nil
	case EngineBadger:
	default:
		return fmt.Errorf("storage.engine must be %q or %q, got %q", EngineMemory, EngineBadger, cfg.Engine)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required for the badger engine")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	if t := cfg.Badger.GCThreshold; t <= 0 || t >= 1 {
		return errors.New("storage.badger.gc_threshold must be between 0 and 1")
	}
	return nil
}

func verifyRegistry(cfg *RegistrySection) error {
	if cfg.Authority == "" {
		return errors.New("registry.authority is required")
	}
	if _, err := domain.ParseAddress(cfg.Authority); err != nil {
		return fmt.Errorf("registry.authority: %w", err)
	}
	if cfg.SubmissionTTL <= 0 {
		return errors.New("registry.submission_ttl must be positive")
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	seen := make(map[string]bool, len(cfg.APIKeys))
	for i := range cfg.APIKeys {
		key := &cfg.APIKeys[i]
		if err := key.Validate(); err != nil {
			return fmt.Errorf("security.api_keys[%d]: %w", i, err)
		}
		if seen[key.ID] {
			return fmt.Errorf("security.api_keys[%d]: duplicate id %q", i, key.ID)
		}
		seen[key.ID] = true
	}
	for _, entry := range cfg.GlobalAllowlist {
		if !validIPOrCIDR(entry) {
			return fmt.Errorf("security.global_allowlist: invalid entry %q", entry)
		}
	}
	return nil
}

func validIPOrCIDR(entry string) bool {
	if net.ParseIP(entry) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(entry)
	return err == nil
}

func verifyCluster(cfg *ClusterSection) error {
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.RaftAddr); err != nil {
		return fmt.Errorf("cluster.raft_addr: %w", err)
	}
	if cfg.DataDir == "" {
		return errors.New("cluster.data_dir is required when cluster is enabled")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("log.format must be json or text, got %q", cfg.Format)
}
