package exec

import (
	"fmt"

	"github.com/catamtz3/cse444-simpledb/types"
)

// Aggregate computes one aggregate over its child, optionally grouped. The
// child is drained completely at Open; HasNext and Next then walk the
// materialized results.
type Aggregate struct {
	child   OpIterator
	aField  int
	gbField int
	op      AggOp
	desc    *types.TupleDesc
	results OpIterator
}

func NewAggregate(child OpIterator, aField, gbField int, op AggOp) (*Aggregate, error) {
	childDesc := child.TupleDesc()

	aType, err := childDesc.FieldType(aField)
	if err != nil {
		return nil, err
	}
	aName, _ := childDesc.FieldName(aField)
	aggName := fmt.Sprintf("%s(%s)", op, aName)

	var desc *types.TupleDesc
	if gbField == NoGrouping {
		desc, err = types.NewTupleDesc([]types.Type{types.IntType}, []string{aggName})
	} else {
		var gbType types.Type
		gbType, err = childDesc.FieldType(gbField)
		if err != nil {
			return nil, err
		}
		gbName, _ := childDesc.FieldName(gbField)
		desc, err = types.NewTupleDesc([]types.Type{gbType, types.IntType},
			[]string{gbName, aggName})
	}
	if err != nil {
		return nil, err
	}

	if aType == types.StringType && op != Count {
		return nil, fmt.Errorf("exec: string fields only support count; got %s", op)
	}
	return &Aggregate{
		child:   child,
		aField:  aField,
		gbField: gbField,
		op:      op,
		desc:    desc,
	}, nil
}

func (a *Aggregate) aggregator() (Aggregator, error) {
	var gbType types.Type
	if a.gbField != NoGrouping {
		var err error
		gbType, err = a.child.TupleDesc().FieldType(a.gbField)
		if err != nil {
			return nil, err
		}
	}

	aType, err := a.child.TupleDesc().FieldType(a.aField)
	if err != nil {
		return nil, err
	}
	if aType == types.StringType {
		return NewStringAggregator(a.gbField, gbType, a.aField, a.op)
	}
	return NewIntAggregator(a.gbField, gbType, a.aField, a.op), nil
}

func (a *Aggregate) Open() error {
	agg, err := a.aggregator()
	if err != nil {
		return err
	}

	err = a.child.Open()
	if err != nil {
		return err
	}
	defer a.child.Close()

	for {
		ok, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}
		err = agg.Merge(t)
		if err != nil {
			return err
		}
	}

	a.results = agg.Iterator()
	return a.results.Open()
}

func (a *Aggregate) HasNext() (bool, error) {
	if a.results == nil {
		return false, errNotOpen
	}
	return a.results.HasNext()
}

func (a *Aggregate) Next() (*types.Tuple, error) {
	if a.results == nil {
		return nil, errNotOpen
	}
	return a.results.Next()
}

func (a *Aggregate) Rewind() error {
	if a.results == nil {
		return errNotOpen
	}
	return a.results.Rewind()
}

func (a *Aggregate) Close() error {
	if a.results == nil {
		return nil
	}
	err := a.results.Close()
	a.results = nil
	return err
}

func (a *Aggregate) TupleDesc() *types.TupleDesc {
	return a.desc
}

func (a *Aggregate) Children() []OpIterator {
	return []OpIterator{a.child}
}
