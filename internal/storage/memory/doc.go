// Package memory provides in-memory storage for ClaimLedger.
//
// Store implements service.LedgerRepository. Tokens live in an id-ordered
// slice, holder indexes in a sharded map, and a store-wide lock makes each
// mint visible atomically. APIKeyStore holds the configured API keys.
package memory
