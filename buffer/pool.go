package buffer

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/catamtz3/cse444-simpledb/catalog"
	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/lock"
	"github.com/catamtz3/cse444-simpledb/types"
	"github.com/catamtz3/cse444-simpledb/wal"
)

// DefaultPages is the default buffer pool capacity.
const DefaultPages = 50

// Pool is a bounded cache of heap pages and the only path from operators to
// disk. Fetching a page acquires the matching page lock first; dirty pages
// are logged and flushed before eviction (STEAL), and commit and abort are
// orchestrated here.
type Pool struct {
	capacity int
	locks    *lock.Manager
	catalog  *catalog.Catalog
	log      wal.LogFile

	// mutex guards the cache map and serializes eviction and flush so a
	// page cannot be flushed twice and the log always precedes the write.
	mutex sync.Mutex
	pages map[types.PageID]*heap.Page
	rnd   *rand.Rand
}

// NewPool creates a pool caching at most capacity pages. seed drives the
// random eviction choice; zero picks a time based seed.
func NewPool(capacity int, cat *catalog.Catalog, locks *lock.Manager,
	logFile wal.LogFile, seed int64) *Pool {

	if capacity <= 0 {
		capacity = DefaultPages
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Pool{
		capacity: capacity,
		locks:    locks,
		catalog:  cat,
		log:      logFile,
		pages:    map[types.PageID]*heap.Page{},
		rnd:      rand.New(rand.NewSource(seed)),
	}
}

func (bp *Pool) Capacity() int {
	return bp.capacity
}

// GetPage returns the page, acquiring a shared lock for ReadOnly and an
// exclusive lock for ReadWrite. It may block in the lock manager and fail
// with ErrTransactionAborted. The returned page is valid until
// TransactionComplete.
func (bp *Pool) GetPage(tid types.TransactionID, pid types.PageID,
	perm types.Permissions) (*heap.Page, error) {

	lt := lock.Shared
	if perm == types.ReadWrite {
		lt = lock.Exclusive
	}
	err := bp.locks.Acquire(tid, pid, lt)
	if err != nil {
		return nil, err
	}

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	if p, ok := bp.pages[pid]; ok {
		return p, nil
	}

	for len(bp.pages) >= bp.capacity {
		err = bp.evictLocked()
		if err != nil {
			return nil, err
		}
	}

	hf, err := bp.catalog.File(pid.TableID)
	if err != nil {
		return nil, err
	}
	p, err := hf.ReadPage(pid)
	if err != nil {
		return nil, err
	}
	bp.pages[pid] = p
	return p, nil
}

// putLocked caches a page version, evicting if a new entry would exceed the
// bound.
func (bp *Pool) putLocked(p *heap.Page) error {
	pid := p.ID()
	if _, ok := bp.pages[pid]; !ok {
		for len(bp.pages) >= bp.capacity {
			err := bp.evictLocked()
			if err != nil {
				return err
			}
		}
	}
	bp.pages[pid] = p
	return nil
}

// InsertTuple adds t to the table on behalf of tid, marking every dirtied
// page and caching the new versions so future reads in the transaction see
// them.
func (bp *Pool) InsertTuple(tid types.TransactionID, tableID int32,
	t *types.Tuple) error {

	hf, err := bp.catalog.File(tableID)
	if err != nil {
		return err
	}
	dirtied, err := hf.InsertTuple(bp, tid, t)
	if err != nil {
		return err
	}

	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	for _, p := range dirtied {
		p.MarkDirty(true, tid)
		err = bp.putLocked(p)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteTuple removes t from its table on behalf of tid.
func (bp *Pool) DeleteTuple(tid types.TransactionID, t *types.Tuple) error {
	rid := t.RecordID()
	if rid == nil {
		return fmt.Errorf("%w: tuple has no record id", types.ErrNotFound)
	}
	hf, err := bp.catalog.File(rid.PageID.TableID)
	if err != nil {
		return err
	}
	p, err := hf.DeleteTuple(bp, tid, t)
	if err != nil {
		return err
	}

	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	p.MarkDirty(true, tid)
	return bp.putLocked(p)
}

// flushPageLocked logs the page's before and after images, forces the log,
// and only then writes the page to disk. A no-op for clean or absent pages.
func (bp *Pool) flushPageLocked(pid types.PageID) error {
	p, ok := bp.pages[pid]
	if !ok {
		return nil
	}
	dirtier, dirty := p.Dirtier()
	if !dirty {
		return nil
	}

	hf, err := bp.catalog.File(pid.TableID)
	if err != nil {
		return err
	}
	after, err := p.Serialize()
	if err != nil {
		return err
	}
	err = bp.log.LogWrite(dirtier, pid, p.BeforeImageData(), after)
	if err != nil {
		return err
	}
	err = bp.log.Force()
	if err != nil {
		return err
	}
	err = hf.WritePage(p)
	if err != nil {
		return err
	}
	p.MarkDirty(false, 0)
	log.WithFields(log.Fields{"page": pid, "tid": dirtier}).Debug("flushed page")
	return nil
}

// FlushPage forces the page to disk if it is cached and dirty.
func (bp *Pool) FlushPage(pid types.PageID) error {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	return bp.flushPageLocked(pid)
}

// FlushAllPages flushes every dirty cached page. Careful: under STEAL this
// writes uncommitted data; the WAL before images are what make that safe.
func (bp *Pool) FlushAllPages() error {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	for pid := range bp.pages {
		err := bp.flushPageLocked(pid)
		if err != nil {
			return err
		}
	}
	return nil
}

// FlushPages flushes every page dirtied by tid.
func (bp *Pool) FlushPages(tid types.TransactionID) error {
	pids := bp.locks.TxnPages(tid)

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	for _, pid := range pids {
		p, ok := bp.pages[pid]
		if !ok {
			continue
		}
		if dirtier, dirty := p.Dirtier(); dirty && dirtier == tid {
			err := bp.flushPageLocked(pid)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// DiscardPage drops the page from the cache without flushing it.
func (bp *Pool) DiscardPage(pid types.PageID) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	delete(bp.pages, pid)
}

// evictLocked removes one randomly chosen page, flushing it first if dirty.
func (bp *Pool) evictLocked() error {
	if len(bp.pages) == 0 {
		return types.ErrNoEvictable
	}

	pids := make([]types.PageID, 0, len(bp.pages))
	for pid := range bp.pages {
		pids = append(pids, pid)
	}
	victim := pids[bp.rnd.Intn(len(pids))]

	err := bp.flushPageLocked(victim)
	if err != nil {
		return fmt.Errorf("buffer: evict %s: %w", victim, err)
	}
	delete(bp.pages, victim)
	log.WithField("page", victim).Debug("evicted page")
	return nil
}

// HoldsLock reports whether tid holds any lock on pid.
func (bp *Pool) HoldsLock(tid types.TransactionID, pid types.PageID) bool {
	return bp.locks.HoldsLock(tid, pid)
}

// ReleasePage releases tid's lock on pid without any cleanup. Breaking two
// phase locking this way is unsafe; it exists for tests.
func (bp *Pool) ReleasePage(tid types.TransactionID, pid types.PageID) {
	bp.locks.Release(tid, pid)
}

// TransactionComplete commits or aborts tid. On commit each touched cached
// page is logged (before and after image), the log is forced, and the page's
// before image advances to its current bytes; on abort each touched page is
// reloaded from disk, discarding in-memory changes. Locks are released
// either way.
func (bp *Pool) TransactionComplete(tid types.TransactionID, commit bool) error {
	pids := bp.locks.TxnPages(tid)

	if commit {
		bp.mutex.Lock()
		for _, pid := range pids {
			p, ok := bp.pages[pid]
			if ok {
				after, err := p.Serialize()
				if err != nil {
					bp.mutex.Unlock()
					return err
				}
				err = bp.log.LogWrite(tid, pid, p.BeforeImageData(), after)
				if err != nil {
					bp.mutex.Unlock()
					return err
				}
				err = bp.log.Force()
				if err != nil {
					bp.mutex.Unlock()
					return err
				}
				err = p.SetBeforeImage()
				if err != nil {
					bp.mutex.Unlock()
					return err
				}
			}
			bp.locks.Release(tid, pid)
		}
		bp.mutex.Unlock()
	} else {
		bp.mutex.Lock()
		for _, pid := range pids {
			hf, err := bp.catalog.File(pid.TableID)
			if err != nil {
				bp.mutex.Unlock()
				return err
			}
			p, err := hf.ReadPage(pid)
			if err != nil {
				bp.mutex.Unlock()
				return err
			}
			err = bp.putLocked(p)
			if err != nil {
				bp.mutex.Unlock()
				return err
			}
			bp.locks.Release(tid, pid)
		}
		bp.mutex.Unlock()
	}

	bp.locks.RemoveTransaction(tid)
	log.WithFields(log.Fields{"tid": tid, "commit": commit}).Debug("transaction complete")
	return nil
}
