// Package repl provides the interactive shell of claimledger-cli.
//
//   - repl.go: read loop, line splitting and dispatch to a Runner
//   - completer.go: prefix completion over the command tree
//   - history.go: history kept in a file next to the CLI config
//
// A line ending in "?" lists the commands that complete it instead of
// running it.
package repl
