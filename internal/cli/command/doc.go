// Package command provides the claimledger-cli command tree.
//
//   - root.go: application, global flags and connection resolution
//   - registry.go, claim.go, holder.go, verify.go: read commands
//   - mint.go, submission.go: the issuer write path
//   - apikey.go, system.go: operator commands
//   - config.go: saved connection profiles
//
// Every command resolves its connection the same way: the selected
// profile from the CLI config file, overridden by flags and environment.
package command
