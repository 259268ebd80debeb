package storage

import (
	"encoding/binary"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// Key prefixes.
var (
	keyState        = []byte("state")
	prefixToken     = []byte("token/")
	prefixHolder    = []byte("holder/")
	holderSeparator = byte('/')
)

func tokenKey(id domain.TokenID) []byte {
	key := make([]byte, len(prefixToken)+8)
	copy(key, prefixToken)
	binary.BigEndian.PutUint64(key[len(prefixToken):], uint64(id))
	return key
}

func holderPrefix(owner domain.Address) []byte {
	key := make([]byte, 0, len(prefixHolder)+len(owner)+1)
	key = append(key, prefixHolder...)
	key = append(key, owner...)
	return append(key, holderSeparator)
}

func holderKey(owner domain.Address, id domain.TokenID) []byte {
	prefix := holderPrefix(owner)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(id))
	return key
}

// idFromKey decodes the trailing 8-byte id of a token or holder key.
func idFromKey(key []byte) domain.TokenID {
	if len(key) < 8 {
		return 0
	}
	return domain.TokenID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// Dir is the database directory.
	Dir string

	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// SyncWrites fsyncs every commit. Off when raft already provides durability.
	// Default: true
	SyncWrites bool

	// InMemory runs Badger without touching disk. Dir is ignored.
	InMemory bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:              dir,
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20,
		ValueLogFileSize: 256 << 20,
		NumMemtables:     2,
		SyncWrites:       true,
	}
}
