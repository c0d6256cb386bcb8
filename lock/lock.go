package lock

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/catamtz3/cse444-simpledb/types"
)

type Type int

const (
	Shared Type = iota
	Exclusive
)

func (lt Type) String() string {
	if lt == Shared {
		return "SHARED"
	}
	return "EXCLUSIVE"
}

const (
	// DefaultWaitUnit is how long one blocked round waits before
	// re-checking; DefaultMaxRounds bounds the number of timed out rounds
	// before the acquire aborts as a backstop.
	DefaultWaitUnit  = 10 * time.Second
	DefaultMaxRounds = 2
)

// entry is the lock state of one page. Invariant: if an exclusive holder is
// set the shared set is empty, and vice versa.
type entry struct {
	shared       map[types.TransactionID]struct{}
	exclusive    types.TransactionID
	hasExclusive bool
}

func (e *entry) grantable(tid types.TransactionID, lt Type) bool {
	if e.hasExclusive && e.exclusive != tid {
		return false
	}
	if lt == Exclusive && len(e.shared) > 0 {
		if len(e.shared) > 1 {
			return false
		}
		if _, ok := e.shared[tid]; !ok {
			return false
		}
	}
	return true
}

func (e *entry) grant(tid types.TransactionID, lt Type) {
	if lt == Shared {
		e.shared[tid] = struct{}{}
		return
	}
	// Upgrade clears the shared set, which is either empty or {tid}.
	for stid := range e.shared {
		delete(e.shared, stid)
	}
	e.exclusive = tid
	e.hasExclusive = true
}

// blockers returns the holders tid is currently blocked on.
func (e *entry) blockers(tid types.TransactionID, lt Type) []types.TransactionID {
	var held []types.TransactionID
	if e.hasExclusive && e.exclusive != tid {
		held = append(held, e.exclusive)
	}
	if lt == Exclusive {
		for stid := range e.shared {
			if stid != tid {
				held = append(held, stid)
			}
		}
	}
	return held
}

func (e *entry) holds(tid types.TransactionID) bool {
	if e.hasExclusive && e.exclusive == tid {
		return true
	}
	_, ok := e.shared[tid]
	return ok
}

func (e *entry) empty() bool {
	return !e.hasExclusive && len(e.shared) == 0
}

// Manager schedules page granularity shared and exclusive locks under two
// phase locking. One mutex serializes the lock table and the waits-for
// graph; waiters are woken by closing the current generation channel so
// blocked acquires can also time out.
type Manager struct {
	mutex     sync.Mutex
	locks     map[types.PageID]*entry
	txnPages  map[types.TransactionID]map[types.PageID]struct{}
	waitsFor  map[types.TransactionID]map[types.TransactionID]struct{}
	waitCh    chan struct{}
	waitUnit  time.Duration
	maxRounds int
}

func NewManager(waitUnit time.Duration, maxRounds int) *Manager {
	if waitUnit <= 0 {
		waitUnit = DefaultWaitUnit
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Manager{
		locks:     map[types.PageID]*entry{},
		txnPages:  map[types.TransactionID]map[types.PageID]struct{}{},
		waitsFor:  map[types.TransactionID]map[types.TransactionID]struct{}{},
		waitCh:    make(chan struct{}),
		waitUnit:  waitUnit,
		maxRounds: maxRounds,
	}
}

func (m *Manager) entryLocked(pid types.PageID) *entry {
	e, ok := m.locks[pid]
	if !ok {
		e = &entry{shared: map[types.TransactionID]struct{}{}}
		m.locks[pid] = e
	}
	return e
}

func (m *Manager) broadcastLocked() {
	close(m.waitCh)
	m.waitCh = make(chan struct{})
}

type edge struct {
	from, to types.TransactionID
}

// addEdgesLocked records tid -> holder edges and returns only those that
// were newly added, so a failed acquire can roll exactly them back.
func (m *Manager) addEdgesLocked(tid types.TransactionID,
	holders []types.TransactionID) []edge {

	var added []edge
	for _, holder := range holders {
		if holder == tid {
			continue
		}
		deps, ok := m.waitsFor[tid]
		if !ok {
			deps = map[types.TransactionID]struct{}{}
			m.waitsFor[tid] = deps
		}
		if _, ok := deps[holder]; !ok {
			deps[holder] = struct{}{}
			added = append(added, edge{from: tid, to: holder})
		}
	}
	return added
}

func (m *Manager) removeEdgesLocked(added []edge) {
	for _, ed := range added {
		deps := m.waitsFor[ed.from]
		delete(deps, ed.to)
		if len(deps) == 0 {
			delete(m.waitsFor, ed.from)
		}
	}
}

func (m *Manager) hasCycleLocked(tid types.TransactionID) bool {
	seen := map[types.TransactionID]struct{}{}
	var visit func(t types.TransactionID) bool
	visit = func(t types.TransactionID) bool {
		if _, ok := seen[t]; ok {
			return true
		}
		seen[t] = struct{}{}
		for dep := range m.waitsFor[t] {
			if visit(dep) {
				return true
			}
		}
		delete(seen, t)
		return false
	}
	return visit(tid)
}

// Acquire blocks until the lock is granted, the waits-for graph shows a
// cycle through tid, or the bounded wait expires; the latter two fail with
// ErrTransactionAborted. No lock is ever held across blocking I/O.
func (m *Manager) Acquire(tid types.TransactionID, pid types.PageID, lt Type) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var rounds int
	e := m.entryLocked(pid)
	for !e.grantable(tid, lt) {
		added := m.addEdgesLocked(tid, e.blockers(tid, lt))
		if m.hasCycleLocked(tid) {
			m.removeEdgesLocked(added)
			log.WithFields(log.Fields{
				"tid":  tid,
				"page": pid,
				"lock": lt,
			}).Warn("deadlock detected; aborting")
			return fmt.Errorf("lock: deadlock on page %s: %w", pid,
				types.ErrTransactionAborted)
		}

		ch := m.waitCh
		m.mutex.Unlock()
		select {
		case <-ch:
		case <-time.After(m.waitUnit):
			rounds++
		}
		m.mutex.Lock()

		if rounds > m.maxRounds {
			log.WithFields(log.Fields{
				"tid":  tid,
				"page": pid,
				"lock": lt,
			}).Warn("lock wait timed out; aborting")
			return fmt.Errorf("lock: wait for page %s timed out: %w", pid,
				types.ErrTransactionAborted)
		}
		// The entry may have been reclaimed while we waited.
		e = m.entryLocked(pid)
	}

	e.grant(tid, lt)
	pages, ok := m.txnPages[tid]
	if !ok {
		pages = map[types.PageID]struct{}{}
		m.txnPages[tid] = pages
	}
	pages[pid] = struct{}{}
	m.broadcastLocked()
	return nil
}

// Release removes tid from whichever side of the lock holds it and wakes
// waiters. Empty lock entries are reclaimed.
func (m *Manager) Release(tid types.TransactionID, pid types.PageID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e, ok := m.locks[pid]
	if ok {
		if e.hasExclusive && e.exclusive == tid {
			e.hasExclusive = false
		}
		delete(e.shared, tid)
		if e.empty() {
			delete(m.locks, pid)
		}
	}

	if pages, ok := m.txnPages[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(m.txnPages, tid)
		}
	}
	m.broadcastLocked()
}

// RemoveTransaction drops tid from the waits-for graph in both directions.
// Edges are removed wholesale here rather than piecewise on each release, so
// a running transaction's dependency set is a conservative superset.
func (m *Manager) RemoveTransaction(tid types.TransactionID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.waitsFor, tid)
	for _, deps := range m.waitsFor {
		delete(deps, tid)
	}
	delete(m.txnPages, tid)
	m.broadcastLocked()
}

func (m *Manager) HoldsLock(tid types.TransactionID, pid types.PageID) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e, ok := m.locks[pid]
	return ok && e.holds(tid)
}

// TxnPages returns a snapshot of the pages tid holds any lock on.
func (m *Manager) TxnPages(tid types.TransactionID) []types.PageID {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	pages := make([]types.PageID, 0, len(m.txnPages[tid]))
	for pid := range m.txnPages[tid] {
		pages = append(pages, pid)
	}
	return pages
}
