package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/types"
)

// IntTupleDesc returns a schema of n int fields named f0, f1, ...
func IntTupleDesc(t *testing.T, n int) *types.TupleDesc {
	t.Helper()

	fieldTypes := make([]types.Type, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		fieldTypes[i] = types.IntType
		names[i] = fmt.Sprintf("f%d", i)
	}
	desc, err := types.NewTupleDesc(fieldTypes, names)
	if err != nil {
		t.Fatal(err)
	}
	return desc
}

// IntTuple builds a tuple of the given int values against desc.
func IntTuple(t *testing.T, desc *types.TupleDesc, vals ...int32) *types.Tuple {
	t.Helper()

	tup := types.NewTuple(desc)
	for i, v := range vals {
		err := tup.SetField(i, types.IntField{Val: v})
		if err != nil {
			t.Fatal(err)
		}
	}
	return tup
}

// MakeHeapFile creates a heap file in dir populated with rows, each a slice
// of int values matching desc.
func MakeHeapFile(t *testing.T, dir, name string, desc *types.TupleDesc,
	pageSize int, rows [][]int32) *heap.File {

	t.Helper()

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		t.Fatal(err)
	}
	hf, err := heap.OpenFile(filepath.Join(dir, name), desc, pageSize)
	if err != nil {
		t.Fatal(err)
	}

	numSlots := heap.NumSlots(desc, pageSize)
	var p *heap.Page
	pageNo := int32(0)
	for i, row := range rows {
		if p == nil {
			p = heap.NewEmptyPage(types.PageID{TableID: hf.ID(), PageNo: pageNo},
				desc, pageSize)
		}
		err = p.InsertTuple(IntTuple(t, desc, row...))
		if err != nil {
			t.Fatal(err)
		}
		if (i+1)%numSlots == 0 || i == len(rows)-1 {
			err = hf.WritePage(p)
			if err != nil {
				t.Fatal(err)
			}
			p = nil
			pageNo++
		}
	}
	return hf
}
