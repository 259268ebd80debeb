// Package storage provides the durable ledger repository for ClaimLedger.
//
// BadgerLedger keeps the registry state, claim tokens and holder indexes
// in an embedded Badger database. Each mint is written in a single Badger
// transaction, so a crash never leaves a token without its index entry or
// counters. A background loop runs value log GC.
//
// Key layout:
//
//	state                      JSON RegistryState
//	token/<id:8 bytes BE>      JSON ClaimToken
//	holder/<address>/<id:8 BE> empty; prefix scan yields mint order
package storage
