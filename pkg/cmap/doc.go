// Package cmap provides a concurrent map sharded by key hash.
//
// Keys are string-kinded; the shard is chosen with murmur3 so the
// distribution is stable across processes:
//
//	m := cmap.New[domain.Address, []domain.TokenID]()
//	m.Update(owner, func(ids []domain.TokenID, _ bool) []domain.TokenID {
//		return append(ids, id)
//	})
//
// Every operation locks a single shard. Range and Count visit shards one
// at a time, so they do not observe a consistent snapshot of the map.
package cmap
