// Package main provides the entry point for claimledger-cli.
//
// claimledger-cli talks to a claimledger-server over its HTTP API:
//
//   - Registry and claim queries (registry, claim, holder, verify)
//   - Minting with a metadata builder (mint, submission)
//   - API key hashing and listing (apikey)
//   - Saved connection profiles (config)
//   - Server status and cluster membership (system)
//
// Usage:
//
//	claimledger-cli registry info
//	claimledger-cli -o json claim get 1
//	claimledger-cli mint --owner 0x... --type KYC --sub-type Verified --wait
//
// Run "claimledger-cli shell" for an interactive session.
package main
