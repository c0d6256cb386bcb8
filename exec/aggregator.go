package exec

import (
	"fmt"
	"sort"

	"github.com/catamtz3/cse444-simpledb/types"
)

// AggOp is an aggregate function.
type AggOp int

const (
	Min AggOp = iota
	Max
	Sum
	Avg
	Count
)

func (op AggOp) String() string {
	switch op {
	case Min:
		return "min"
	case Max:
		return "max"
	case Sum:
		return "sum"
	case Avg:
		return "avg"
	case Count:
		return "count"
	default:
		return fmt.Sprintf("AggOp(%d)", int(op))
	}
}

// ParseAggOp converts the textual form of an aggregate back to an AggOp.
func ParseAggOp(s string) (AggOp, error) {
	switch s {
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	case "sum":
		return Sum, nil
	case "avg":
		return Avg, nil
	case "count":
		return Count, nil
	default:
		return 0, fmt.Errorf("exec: %s is not an aggregate", s)
	}
}

// NoGrouping means the aggregator produces a single ungrouped result.
const NoGrouping = -1

// Aggregator folds tuples one at a time and then produces the results.
// Iterator is terminal: it snapshots the state at the call, and later Merge
// calls do not feed already created iterators.
type Aggregator interface {
	Merge(t *types.Tuple) error
	Iterator() OpIterator
}

// intState is the running aggregate for one group over an int field.
type intState struct {
	count int32
	sum   int32
	min   int32
	max   int32
}

func (st *intState) merge(v int32) {
	if st.count == 0 || v < st.min {
		st.min = v
	}
	if st.count == 0 || v > st.max {
		st.max = v
	}
	st.count++
	st.sum += v
}

func (st *intState) result(op AggOp) int32 {
	switch op {
	case Min:
		return st.min
	case Max:
		return st.max
	case Sum:
		return st.sum
	case Avg:
		// Integer division, like the rest of the int arithmetic here.
		return st.sum / st.count
	default:
		return st.count
	}
}

// IntAggregator aggregates an int field, optionally grouped by another
// field.
type IntAggregator struct {
	gbField int
	gbType  types.Type
	aField  int
	op      AggOp

	// The nil Field key holds the single ungrouped state.
	groups map[types.Field]*intState
}

func NewIntAggregator(gbField int, gbType types.Type, aField int, op AggOp) *IntAggregator {
	return &IntAggregator{
		gbField: gbField,
		gbType:  gbType,
		aField:  aField,
		op:      op,
		groups:  map[types.Field]*intState{},
	}
}

func (agg *IntAggregator) groupKey(t *types.Tuple) (types.Field, error) {
	if agg.gbField == NoGrouping {
		return nil, nil
	}
	return t.Field(agg.gbField)
}

func (agg *IntAggregator) Merge(t *types.Tuple) error {
	key, err := agg.groupKey(t)
	if err != nil {
		return err
	}
	f, err := t.Field(agg.aField)
	if err != nil {
		return err
	}
	iv, ok := f.(types.IntField)
	if !ok {
		return fmt.Errorf("exec: cannot aggregate %s as int", f.Type())
	}

	st, ok := agg.groups[key]
	if !ok {
		st = &intState{}
		agg.groups[key] = st
	}
	st.merge(iv.Val)
	return nil
}

func (agg *IntAggregator) Iterator() OpIterator {
	return groupIterator(agg.gbField, agg.gbType, func() map[types.Field]int32 {
		out := make(map[types.Field]int32, len(agg.groups))
		for key, st := range agg.groups {
			out[key] = st.result(agg.op)
		}
		return out
	})
}

// StringAggregator aggregates a string field; only Count is defined.
type StringAggregator struct {
	gbField int
	gbType  types.Type
	aField  int

	counts map[types.Field]int32
}

func NewStringAggregator(gbField int, gbType types.Type, aField int,
	op AggOp) (*StringAggregator, error) {

	if op != Count {
		return nil, fmt.Errorf("exec: string fields only support count; got %s", op)
	}
	return &StringAggregator{
		gbField: gbField,
		gbType:  gbType,
		aField:  aField,
		counts:  map[types.Field]int32{},
	}, nil
}

func (agg *StringAggregator) Merge(t *types.Tuple) error {
	var key types.Field
	if agg.gbField != NoGrouping {
		var err error
		key, err = t.Field(agg.gbField)
		if err != nil {
			return err
		}
	}
	f, err := t.Field(agg.aField)
	if err != nil {
		return err
	}
	if f.Type() != types.StringType {
		return fmt.Errorf("exec: cannot aggregate %s as string", f.Type())
	}
	agg.counts[key]++
	return nil
}

func (agg *StringAggregator) Iterator() OpIterator {
	return groupIterator(agg.gbField, agg.gbType, func() map[types.Field]int32 {
		out := make(map[types.Field]int32, len(agg.counts))
		for key, n := range agg.counts {
			out[key] = n
		}
		return out
	})
}

// groupIterator materializes the group results into a TupleIterator, in a
// deterministic group value order.
func groupIterator(gbField int, gbType types.Type,
	results func() map[types.Field]int32) OpIterator {

	res := results()

	var desc *types.TupleDesc
	var err error
	if gbField == NoGrouping {
		desc, err = types.NewTupleDesc([]types.Type{types.IntType},
			[]string{"aggregateVal"})
	} else {
		desc, err = types.NewTupleDesc([]types.Type{gbType, types.IntType},
			[]string{"groupVal", "aggregateVal"})
	}
	if err != nil {
		panic(fmt.Sprintf("exec: aggregate schema: %s", err))
	}

	keys := make([]types.Field, 0, len(res))
	for key := range res {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == nil {
			return true
		}
		less, _ := keys[i].Compare(types.LessThan, keys[j])
		return less
	})

	tuples := make([]*types.Tuple, 0, len(keys))
	for _, key := range keys {
		t := types.NewTuple(desc)
		if gbField == NoGrouping {
			t.SetField(0, types.IntField{Val: res[key]})
		} else {
			t.SetField(0, key)
			t.SetField(1, types.IntField{Val: res[key]})
		}
		tuples = append(tuples, t)
	}
	return NewTupleIterator(desc, tuples)
}
