package config

import (
	"strings"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// Sanitize returns a copy of the config with sensitive fields masked.
// It is used for logging the effective configuration.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if len(cfg.Security.APIKeys) > 0 {
		sanitized.Security.APIKeys = make([]domain.APIKey, len(cfg.Security.APIKeys))
		for i, key := range cfg.Security.APIKeys {
			key.SecretHash = maskSecret(key.SecretHash)
			sanitized.Security.APIKeys[i] = key
		}
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
