// Package metric exposes claimledger metrics in Prometheus format.
//
// A Registry owns its own prometheus.Registry, so several servers in one
// process (and tests) never collide. Mint counters are fed by a
// service.MintObserver; ledger size is read at scrape time by
// LedgerCollector.
package metric
