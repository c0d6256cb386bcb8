package exec

import (
	"fmt"

	"github.com/catamtz3/cse444-simpledb/types"
)

// Predicate compares one field of a tuple against a constant.
type Predicate struct {
	Field   int
	Op      types.Op
	Operand types.Field
}

func (p Predicate) Filter(t *types.Tuple) (bool, error) {
	f, err := t.Field(p.Field)
	if err != nil {
		return false, err
	}
	return f.Compare(p.Op, p.Operand)
}

func (p Predicate) String() string {
	return fmt.Sprintf("f%d %s %s", p.Field, p.Op, p.Operand)
}

// Filter passes through the child tuples satisfying its predicate.
type Filter struct {
	pred   Predicate
	child  OpIterator
	opened bool
	next   *types.Tuple
}

func NewFilter(pred Predicate, child OpIterator) *Filter {
	return &Filter{pred: pred, child: child}
}

func (f *Filter) Open() error {
	err := f.child.Open()
	if err != nil {
		return err
	}
	f.opened = true
	f.next = nil
	return nil
}

func (f *Filter) fetch() error {
	for f.next == nil {
		ok, err := f.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		t, err := f.child.Next()
		if err != nil {
			return err
		}
		keep, err := f.pred.Filter(t)
		if err != nil {
			return err
		}
		if keep {
			f.next = t
		}
	}
	return nil
}

func (f *Filter) HasNext() (bool, error) {
	if !f.opened {
		return false, errNotOpen
	}
	err := f.fetch()
	if err != nil {
		return false, err
	}
	return f.next != nil, nil
}

func (f *Filter) Next() (*types.Tuple, error) {
	ok, err := f.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrNotFound
	}
	t := f.next
	f.next = nil
	return t, nil
}

func (f *Filter) Rewind() error {
	if !f.opened {
		return errNotOpen
	}
	f.next = nil
	return f.child.Rewind()
}

func (f *Filter) Close() error {
	f.opened = false
	f.next = nil
	return f.child.Close()
}

func (f *Filter) TupleDesc() *types.TupleDesc {
	return f.child.TupleDesc()
}

func (f *Filter) Children() []OpIterator {
	return []OpIterator{f.child}
}
