package exec

import (
	"fmt"

	"github.com/catamtz3/cse444-simpledb/catalog"
	"github.com/catamtz3/cse444-simpledb/types"
)

var countDesc *types.TupleDesc

func init() {
	var err error
	countDesc, err = types.NewTupleDesc([]types.Type{types.IntType}, []string{"count"})
	if err != nil {
		panic(err)
	}
}

func countTuple(n int32) *types.Tuple {
	t := types.NewTuple(countDesc)
	t.SetField(0, types.IntField{Val: n})
	return t
}

// Insert drains its child into a table and produces a single tuple holding
// the number of rows inserted. A second Next (without Rewind) finds the
// iterator exhausted.
type Insert struct {
	pool    Pool
	tid     types.TransactionID
	child   OpIterator
	tableID int32
	opened  bool
	done    bool
}

func NewInsert(pool Pool, cat *catalog.Catalog, tid types.TransactionID,
	child OpIterator, tableID int32) (*Insert, error) {

	desc, err := cat.TupleDesc(tableID)
	if err != nil {
		return nil, err
	}
	if !child.TupleDesc().Equals(desc) {
		return nil, fmt.Errorf("exec: insert schema mismatch: got %s; want %s",
			child.TupleDesc(), desc)
	}
	return &Insert{pool: pool, tid: tid, child: child, tableID: tableID}, nil
}

func (in *Insert) Open() error {
	err := in.child.Open()
	if err != nil {
		return err
	}
	in.opened = true
	in.done = false
	return nil
}

func (in *Insert) HasNext() (bool, error) {
	if !in.opened {
		return false, errNotOpen
	}
	return !in.done, nil
}

func (in *Insert) Next() (*types.Tuple, error) {
	ok, err := in.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrNotFound
	}

	var n int32
	for {
		ok, err := in.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		t, err := in.child.Next()
		if err != nil {
			return nil, err
		}
		err = in.pool.InsertTuple(in.tid, in.tableID, t)
		if err != nil {
			return nil, err
		}
		n++
	}

	in.done = true
	return countTuple(n), nil
}

func (in *Insert) Rewind() error {
	if !in.opened {
		return errNotOpen
	}
	err := in.child.Rewind()
	if err != nil {
		return err
	}
	in.done = false
	return nil
}

func (in *Insert) Close() error {
	in.opened = false
	return in.child.Close()
}

func (in *Insert) TupleDesc() *types.TupleDesc {
	return countDesc
}

func (in *Insert) Children() []OpIterator {
	return []OpIterator{in.child}
}
