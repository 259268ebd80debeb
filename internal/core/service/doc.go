// Package service provides the registry's domain services.
//
// Services contain the business logic and define interfaces for their
// storage dependencies, so storage engines and commit substrates can be
// swapped and mocked:
//
//   - Ledger: applies committed initialize and mint commands
//   - AuthorityGuard: admits only the registry authority to mint
//   - Committer, LocalCommitter, Pending: the two-phase confirmation protocol
//   - RegistryService: validates and submits mints, tracks pending handles
//   - QueryService: read-only verification queries
//   - AuthService: API key authentication, authorization and rate limiting
package service
