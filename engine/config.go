package engine

import (
	"path/filepath"
	"time"

	"github.com/catamtz3/cse444-simpledb/buffer"
	"github.com/catamtz3/cse444-simpledb/lock"
)

const DefaultPageSize = 4096

// Config controls the storage engine. Zero values fall back to the defaults
// below.
type Config struct {
	// DataDir holds the heap files plus, by default, the write ahead log
	// and the catalog.
	DataDir string

	PageSize    int
	BufferPages int

	LockWait       time.Duration
	LockWaitRounds int

	// EvictSeed fixes the eviction choice for reproducible runs; zero
	// seeds from the clock.
	EvictSeed int64

	WALFile     string
	CatalogFile string
}

func (cfg *Config) fill() {
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.BufferPages <= 0 {
		cfg.BufferPages = buffer.DefaultPages
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = lock.DefaultWaitUnit
	}
	if cfg.LockWaitRounds <= 0 {
		cfg.LockWaitRounds = lock.DefaultMaxRounds
	}
	if cfg.WALFile == "" {
		cfg.WALFile = filepath.Join(cfg.DataDir, "simpledb.wal")
	}
	if cfg.CatalogFile == "" {
		cfg.CatalogFile = filepath.Join(cfg.DataDir, "catalog.db")
	}
}
