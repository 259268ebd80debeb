// Package domain defines the core domain models for ClaimLedger.
//
// Domain models are plain values without IO dependencies:
//
//   - ClaimToken and RegistryState: the ledger's records and counters
//   - Address: the identity handle for owners and the issuance authority
//   - ClaimMetadata: decoded claim data, structured or raw
//   - APIKey: credentials mapping HTTP callers to addresses
//   - DomainError: coded errors shared by every layer
package domain
