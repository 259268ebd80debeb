// Package output provides output formatting for claimledger-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned tables, with wide mode for extra columns
//   - json.go, yaml.go: machine-readable output for scripting
//   - spinner.go: progress animation while waiting on a submission
package output
