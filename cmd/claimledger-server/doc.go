// Package main provides the entry point for claimledger-server.
//
// claimledger-server hosts one claim registry: an authority-gated
// ledger of non-transferable claim tokens served over HTTP. Commits go
// through a single local committer or, with cluster.enabled, through a
// Raft group.
package main
