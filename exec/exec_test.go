package exec_test

import (
	"errors"
	"testing"
	"time"

	"github.com/catamtz3/cse444-simpledb/buffer"
	"github.com/catamtz3/cse444-simpledb/catalog"
	"github.com/catamtz3/cse444-simpledb/exec"
	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/lock"
	"github.com/catamtz3/cse444-simpledb/testutil"
	"github.com/catamtz3/cse444-simpledb/types"
	"github.com/catamtz3/cse444-simpledb/wal"
)

func setup(t *testing.T, rows [][]int32) (*buffer.Pool, *catalog.Catalog, *heap.File) {
	t.Helper()

	dir := t.TempDir()
	desc := testutil.IntTupleDesc(t, 2)
	hf := testutil.MakeHeapFile(t, dir, "t.dat", desc, 4096, rows)
	t.Cleanup(func() { hf.Close() })

	cat := catalog.NewCatalog()
	cat.AddTable(hf, "t", "f0")

	lf, err := wal.OpenFileLog(dir + "/test.wal")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lf.Close() })

	locks := lock.NewManager(10*time.Millisecond, 2)
	return buffer.NewPool(4, cat, locks, lf, 1), cat, hf
}

func drain(t *testing.T, it exec.OpIterator) [][]int32 {
	t.Helper()

	if err := it.Open(); err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	var out [][]int32
	for {
		ok, err := it.HasNext()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			return out
		}
		tup, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		row := make([]int32, tup.TupleDesc().NumFields())
		for i := range row {
			f, err := tup.Field(i)
			if err != nil {
				t.Fatal(err)
			}
			row[i] = f.(types.IntField).Val
		}
		out = append(out, row)
	}
}

func equalRows(a, b [][]int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

var testRows = [][]int32{
	{1, 10}, {1, 20}, {2, 30}, {3, 40}, {3, 50}, {3, 60},
}

func TestSeqScan(t *testing.T) {
	bp, cat, hf := setup(t, testRows)

	ss, err := exec.NewSeqScan(bp, cat, 1, hf.ID(), "t")
	if err != nil {
		t.Fatal(err)
	}

	// The schema is alias qualified.
	fn, err := ss.TupleDesc().FieldName(0)
	if err != nil {
		t.Fatal(err)
	}
	if fn != "t.f0" {
		t.Fatalf("field name got %q want t.f0", fn)
	}

	got := drain(t, ss)
	if !equalRows(got, testRows) {
		t.Fatalf("scan got %v", got)
	}
}

func TestFilter(t *testing.T) {
	bp, cat, hf := setup(t, testRows)

	ss, err := exec.NewSeqScan(bp, cat, 1, hf.ID(), "")
	if err != nil {
		t.Fatal(err)
	}
	f := exec.NewFilter(exec.Predicate{
		Field:   1,
		Op:      types.GreaterThan,
		Operand: types.IntField{Val: 30},
	}, ss)

	if err := f.Open(); err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for pass := 0; pass < 2; pass++ {
		var got [][]int32
		for {
			ok, err := f.HasNext()
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				break
			}
			tup, err := f.Next()
			if err != nil {
				t.Fatal(err)
			}
			a, _ := tup.Field(0)
			b, _ := tup.Field(1)
			got = append(got, []int32{a.(types.IntField).Val, b.(types.IntField).Val})
		}
		want := [][]int32{{3, 40}, {3, 50}, {3, 60}}
		if !equalRows(got, want) {
			t.Fatalf("pass %d: filter got %v want %v", pass, got, want)
		}
		if err := f.Rewind(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFilterNoMatches(t *testing.T) {
	bp, cat, hf := setup(t, testRows)

	ss, err := exec.NewSeqScan(bp, cat, 1, hf.ID(), "")
	if err != nil {
		t.Fatal(err)
	}
	f := exec.NewFilter(exec.Predicate{
		Field:   1,
		Op:      types.GreaterThan,
		Operand: types.IntField{Val: 1000},
	}, ss)

	if got := drain(t, f); len(got) != 0 {
		t.Fatalf("filter got %v want no rows", got)
	}
}

func TestAggregateCountGroupBy(t *testing.T) {
	bp, cat, hf := setup(t, testRows)

	ss, err := exec.NewSeqScan(bp, cat, 1, hf.ID(), "")
	if err != nil {
		t.Fatal(err)
	}
	agg, err := exec.NewAggregate(ss, 1, 0, exec.Count)
	if err != nil {
		t.Fatal(err)
	}

	fn, err := agg.TupleDesc().FieldName(1)
	if err != nil {
		t.Fatal(err)
	}
	if fn != "count(f1)" {
		t.Fatalf("aggregate column got %q want count(f1)", fn)
	}

	got := drain(t, agg)
	want := [][]int32{{1, 2}, {2, 1}, {3, 3}}
	if !equalRows(got, want) {
		t.Fatalf("count group by got %v want %v", got, want)
	}
}

func TestAggregateUngrouped(t *testing.T) {
	cases := []struct {
		op   exec.AggOp
		want int32
	}{
		{exec.Min, 10},
		{exec.Max, 60},
		{exec.Sum, 210},
		{exec.Avg, 35},
		{exec.Count, 6},
	}
	for _, c := range cases {
		bp, cat, hf := setup(t, testRows)

		ss, err := exec.NewSeqScan(bp, cat, 1, hf.ID(), "")
		if err != nil {
			t.Fatal(err)
		}
		agg, err := exec.NewAggregate(ss, 1, exec.NoGrouping, c.op)
		if err != nil {
			t.Fatal(err)
		}
		got := drain(t, agg)
		if !equalRows(got, [][]int32{{c.want}}) {
			t.Fatalf("%s got %v want %d", c.op, got, c.want)
		}
	}
}

func TestStringAggregateCountOnly(t *testing.T) {
	_, err := exec.NewStringAggregator(exec.NoGrouping, 0, 0, exec.Sum)
	if err == nil {
		t.Fatal("string sum aggregator did not fail")
	}

	agg, err := exec.NewStringAggregator(exec.NoGrouping, 0, 0, exec.Count)
	if err != nil {
		t.Fatal(err)
	}

	desc, err := types.NewTupleDesc([]types.Type{types.StringType}, []string{"s"})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"a", "b", "c"} {
		tup := types.NewTuple(desc)
		if err = tup.SetField(0, types.StringField{Val: s}); err != nil {
			t.Fatal(err)
		}
		if err = agg.Merge(tup); err != nil {
			t.Fatal(err)
		}
	}

	it := agg.Iterator()
	if err = it.Open(); err != nil {
		t.Fatal(err)
	}
	tup, err := it.Next()
	if err != nil {
		t.Fatal(err)
	}
	f, _ := tup.Field(0)
	if f.(types.IntField).Val != 3 {
		t.Fatalf("string count got %s want 3", f)
	}
}

func TestAggregatorIteratorIsTerminal(t *testing.T) {
	agg := exec.NewIntAggregator(exec.NoGrouping, 0, 0, exec.Count)
	desc := testutil.IntTupleDesc(t, 1)

	if err := agg.Merge(testutil.IntTuple(t, desc, 1)); err != nil {
		t.Fatal(err)
	}
	it := agg.Iterator()

	// Later merges do not feed an already created iterator.
	if err := agg.Merge(testutil.IntTuple(t, desc, 2)); err != nil {
		t.Fatal(err)
	}

	if err := it.Open(); err != nil {
		t.Fatal(err)
	}
	tup, err := it.Next()
	if err != nil {
		t.Fatal(err)
	}
	f, _ := tup.Field(0)
	if f.(types.IntField).Val != 1 {
		t.Fatalf("terminal iterator got count %s want 1", f)
	}
}

func TestInsertOperator(t *testing.T) {
	bp, cat, hf := setup(t, testRows)
	desc := testutil.IntTupleDesc(t, 2)

	src := exec.NewTupleIterator(desc, []*types.Tuple{
		testutil.IntTuple(t, desc, 4, 70),
		testutil.IntTuple(t, desc, 4, 80),
	})
	in, err := exec.NewInsert(bp, cat, 1, src, hf.ID())
	if err != nil {
		t.Fatal(err)
	}

	got := drain(t, in)
	if !equalRows(got, [][]int32{{2}}) {
		t.Fatalf("insert got %v want one count tuple of 2", got)
	}

	ss, err := exec.NewSeqScan(bp, cat, 1, hf.ID(), "")
	if err != nil {
		t.Fatal(err)
	}
	if rows := drain(t, ss); len(rows) != len(testRows)+2 {
		t.Fatalf("after insert: scan got %d rows want %d", len(rows), len(testRows)+2)
	}
}

func TestInsertSchemaMismatch(t *testing.T) {
	bp, cat, hf := setup(t, testRows)

	src := exec.NewTupleIterator(testutil.IntTupleDesc(t, 1), nil)
	_, err := exec.NewInsert(bp, cat, 1, src, hf.ID())
	if err == nil {
		t.Fatal("insert with mismatched schema did not fail")
	}
}

func TestDeleteOperator(t *testing.T) {
	bp, cat, hf := setup(t, testRows)

	ss, err := exec.NewSeqScan(bp, cat, 1, hf.ID(), "")
	if err != nil {
		t.Fatal(err)
	}
	f := exec.NewFilter(exec.Predicate{
		Field:   0,
		Op:      types.Equals,
		Operand: types.IntField{Val: 3},
	}, ss)
	del := exec.NewDelete(bp, 1, f)

	got := drain(t, del)
	if !equalRows(got, [][]int32{{3}}) {
		t.Fatalf("delete got %v want one count tuple of 3", got)
	}

	// Next past the single count tuple is exhausted, not another pass.
	if err = del.Open(); err != nil {
		t.Fatal(err)
	}
	if _, err = del.Next(); err != nil {
		t.Fatal(err)
	}
	_, err = del.Next()
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("second Next got %v want ErrNotFound", err)
	}
	del.Close()

	ss2, err := exec.NewSeqScan(bp, cat, 1, hf.ID(), "")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int32{{1, 10}, {1, 20}, {2, 30}}
	if rows := drain(t, ss2); !equalRows(rows, want) {
		t.Fatalf("after delete: scan got %v want %v", rows, want)
	}
}

func TestTupleIterator(t *testing.T) {
	desc := testutil.IntTupleDesc(t, 1)
	it := exec.NewTupleIterator(desc, []*types.Tuple{
		testutil.IntTuple(t, desc, 1),
		testutil.IntTuple(t, desc, 2),
	})

	if _, err := it.HasNext(); err == nil {
		t.Fatal("HasNext before Open did not fail")
	}

	got := drain(t, it)
	if !equalRows(got, [][]int32{{1}, {2}}) {
		t.Fatalf("tuple iterator got %v", got)
	}
}
