package config

// CLIConfig is the configuration for claimledger-cli.
type CLIConfig struct {
	DefaultOutput  string             `koanf:"default_output" yaml:"default_output"`
	CurrentProfile string             `koanf:"current_profile" yaml:"current_profile"`
	Profiles       map[string]Profile `koanf:"profiles" yaml:"profiles"`
}

// Profile stores saved connection details.
type Profile struct {
	Server   string `koanf:"server" yaml:"server"`
	APIKeyID string `koanf:"api_key_id" yaml:"api_key_id,omitempty"`
	APIKey   string `koanf:"api_key" yaml:"api_key,omitempty"`
	CAFile   string `koanf:"ca_file" yaml:"ca_file,omitempty"`
	Insecure bool   `koanf:"insecure" yaml:"insecure,omitempty"`
}

// DefaultServer is used when neither a profile nor a flag names a server.
const DefaultServer = "http://localhost:5080"

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultOutput: "table",
		Profiles:      make(map[string]Profile),
	}
}
