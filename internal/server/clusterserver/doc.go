// Package clusterserver replicates the claim ledger with Raft.
//
// Every initialize and mint command becomes one Raft log entry. The FSM
// applies committed entries to a service.Ledger using the log index as
// the commit marker, so all nodes hold identical registries. Snapshots
// carry the full ledger export, gzip-compressed.
//
// RaftCommitter plugs the node into service.RegistryService as its
// Committer; only the leader accepts submissions.
package clusterserver
