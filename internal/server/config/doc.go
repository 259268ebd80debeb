// Package config defines the claimledger-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: masking for logs
//   - convert.go: mapping onto component configs
//
// Configuration is loaded via internal/infra/confloader from a YAML
// file and CLAIMLEDGER_ environment variables.
package config
