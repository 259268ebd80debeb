// Package config holds claimledger-cli connection profiles.
//
// Profiles live in ~/.claimledger/cli.yaml:
//
//	current_profile: prod
//	default_output: table
//	profiles:
//	  prod:
//	    server: https://ledger.example.com:5080
//	    api_key_id: issuer-1
//	    api_key: clas_...
//	    ca_file: /etc/claimledger/ca.pem
//
// Command-line flags and CLAIMLEDGER_* environment variables override
// the selected profile field by field.
package config
