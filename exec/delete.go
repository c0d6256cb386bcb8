package exec

import (
	"github.com/catamtz3/cse444-simpledb/types"
)

// Delete drains its child and deletes each tuple from its table, producing a
// single tuple holding the number of rows deleted. The child must produce
// tuples carrying record ids, such as a SeqScan or a Filter over one.
type Delete struct {
	pool   Pool
	tid    types.TransactionID
	child  OpIterator
	opened bool
	done   bool
}

func NewDelete(pool Pool, tid types.TransactionID, child OpIterator) *Delete {
	return &Delete{pool: pool, tid: tid, child: child}
}

func (d *Delete) Open() error {
	err := d.child.Open()
	if err != nil {
		return err
	}
	d.opened = true
	d.done = false
	return nil
}

func (d *Delete) HasNext() (bool, error) {
	if !d.opened {
		return false, errNotOpen
	}
	return !d.done, nil
}

func (d *Delete) Next() (*types.Tuple, error) {
	ok, err := d.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrNotFound
	}

	var n int32
	for {
		ok, err := d.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		t, err := d.child.Next()
		if err != nil {
			return nil, err
		}
		err = d.pool.DeleteTuple(d.tid, t)
		if err != nil {
			return nil, err
		}
		n++
	}

	d.done = true
	return countTuple(n), nil
}

func (d *Delete) Rewind() error {
	if !d.opened {
		return errNotOpen
	}
	err := d.child.Rewind()
	if err != nil {
		return err
	}
	d.done = false
	return nil
}

func (d *Delete) Close() error {
	d.opened = false
	return d.child.Close()
}

func (d *Delete) TupleDesc() *types.TupleDesc {
	return countDesc
}

func (d *Delete) Children() []OpIterator {
	return []OpIterator{d.child}
}
