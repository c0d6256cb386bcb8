package types

import "errors"

var (
	// ErrTransactionAborted is returned when an acquire deadlocks, times
	// out, or is interrupted. The caller must complete the transaction
	// with commit=false to release its locks and restore buffer state.
	ErrTransactionAborted = errors.New("simpledb: transaction aborted")

	// ErrNotEnoughSpace is returned by a page insert with no empty slot.
	ErrNotEnoughSpace = errors.New("simpledb: not enough space on page")

	// ErrNotFound is returned for a missing field name, slot, tuple, or
	// table.
	ErrNotFound = errors.New("simpledb: not found")

	// ErrNoEvictable is returned when the buffer pool must evict a page
	// but has none to evict.
	ErrNoEvictable = errors.New("simpledb: no pages to evict")
)
