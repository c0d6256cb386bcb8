package exec

import (
	"errors"

	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/types"
)

var errNotOpen = errors.New("exec: iterator not open")

// OpIterator is the boundary every relational operator implements. Open must
// be called before HasNext, Next, or Rewind; Next on an exhausted iterator
// fails with types.ErrNotFound.
type OpIterator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*types.Tuple, error)
	Rewind() error
	Close() error
	TupleDesc() *types.TupleDesc
	Children() []OpIterator
}

// Pool is what operators need from the buffer pool: page fetches for scans
// plus tuple mutation for Insert and Delete. buffer.Pool implements it.
type Pool interface {
	heap.Pool
	InsertTuple(tid types.TransactionID, tableID int32, t *types.Tuple) error
	DeleteTuple(tid types.TransactionID, t *types.Tuple) error
}

// TupleIterator replays a materialized slice of tuples. Aggregates use it as
// their terminal result iterator.
type TupleIterator struct {
	desc   *types.TupleDesc
	tuples []*types.Tuple
	idx    int
	opened bool
}

func NewTupleIterator(desc *types.TupleDesc, tuples []*types.Tuple) *TupleIterator {
	return &TupleIterator{desc: desc, tuples: tuples}
}

func (it *TupleIterator) Open() error {
	it.opened = true
	it.idx = 0
	return nil
}

func (it *TupleIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, errNotOpen
	}
	return it.idx < len(it.tuples), nil
}

func (it *TupleIterator) Next() (*types.Tuple, error) {
	ok, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrNotFound
	}
	t := it.tuples[it.idx]
	it.idx++
	return t, nil
}

func (it *TupleIterator) Rewind() error {
	if !it.opened {
		return errNotOpen
	}
	it.idx = 0
	return nil
}

func (it *TupleIterator) Close() error {
	it.opened = false
	return nil
}

func (it *TupleIterator) TupleDesc() *types.TupleDesc {
	return it.desc
}

func (it *TupleIterator) Children() []OpIterator {
	return nil
}
