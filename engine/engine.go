package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/catamtz3/cse444-simpledb/buffer"
	"github.com/catamtz3/cse444-simpledb/catalog"
	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/lock"
	"github.com/catamtz3/cse444-simpledb/types"
	"github.com/catamtz3/cse444-simpledb/wal"
)

// Engine wires the catalog, lock manager, write ahead log, and buffer pool
// together and hands out transaction ids.
type Engine struct {
	cfg     Config
	catalog *catalog.Catalog
	locks   *lock.Manager
	log     *wal.FileLog
	pool    *buffer.Pool
	lastTID int64
}

// Open starts an engine over cfg.DataDir, reloading the catalog written by a
// previous run if there is one.
func Open(cfg Config) (*Engine, error) {
	cfg.fill()

	err := os.MkdirAll(cfg.DataDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("engine: data dir %s: %w", cfg.DataDir, err)
	}

	var cat *catalog.Catalog
	if _, err := os.Stat(cfg.CatalogFile); err == nil {
		cat, err = catalog.Load(cfg.CatalogFile, cfg.PageSize)
		if err != nil {
			return nil, err
		}
	} else {
		cat = catalog.NewCatalog()
	}

	logFile, err := wal.OpenFileLog(cfg.WALFile)
	if err != nil {
		return nil, err
	}

	locks := lock.NewManager(cfg.LockWait, cfg.LockWaitRounds)
	pool := buffer.NewPool(cfg.BufferPages, cat, locks, logFile, cfg.EvictSeed)

	log.WithFields(log.Fields{
		"dir":    cfg.DataDir,
		"pages":  cfg.BufferPages,
		"tables": len(cat.TableNames()),
	}).Info("engine started")

	return &Engine{
		cfg:     cfg,
		catalog: cat,
		locks:   locks,
		log:     logFile,
		pool:    pool,
	}, nil
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

func (e *Engine) Pool() *buffer.Pool {
	return e.pool
}

func (e *Engine) PageSize() int {
	return e.cfg.PageSize
}

// Begin starts a transaction. Ids are unique for the life of the process.
func (e *Engine) Begin() types.TransactionID {
	return types.TransactionID(atomic.AddInt64(&e.lastTID, 1))
}

func (e *Engine) Commit(tid types.TransactionID) error {
	return e.pool.TransactionComplete(tid, true)
}

func (e *Engine) Abort(tid types.TransactionID) error {
	return e.pool.TransactionComplete(tid, false)
}

// CreateTable creates (or reopens) a heap file named after the table under
// the data directory, registers it, and persists the catalog.
func (e *Engine) CreateTable(name string, fieldTypes []types.Type,
	fieldNames []string, primaryKey string) (*heap.File, error) {

	desc, err := types.NewTupleDesc(fieldTypes, fieldNames)
	if err != nil {
		return nil, err
	}
	hf, err := heap.OpenFile(filepath.Join(e.cfg.DataDir, name+".dat"), desc,
		e.cfg.PageSize)
	if err != nil {
		return nil, err
	}
	e.catalog.AddTable(hf, name, primaryKey)

	err = e.catalog.Save(e.cfg.CatalogFile)
	if err != nil {
		hf.Close()
		return nil, err
	}
	return hf, nil
}

// Close flushes every dirty page, persists the catalog, and closes the log
// and heap files. In-flight transactions must be finished first.
func (e *Engine) Close() error {
	err := e.pool.FlushAllPages()
	if err != nil {
		return err
	}
	err = e.catalog.Save(e.cfg.CatalogFile)
	if err != nil {
		return err
	}

	for _, name := range e.catalog.TableNames() {
		tableID, err := e.catalog.TableID(name)
		if err != nil {
			continue
		}
		hf, err := e.catalog.File(tableID)
		if err != nil {
			continue
		}
		err = hf.Close()
		if err != nil {
			return err
		}
	}
	return e.log.Close()
}
