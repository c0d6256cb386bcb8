package heap_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/testutil"
	"github.com/catamtz3/cse444-simpledb/types"
)

// testPool hands out pages without locking, caching them so repeated fetches
// within a test alias the same page.
type testPool struct {
	files map[int32]*heap.File
	pages map[types.PageID]*heap.Page
}

func newTestPool(files ...*heap.File) *testPool {
	tp := &testPool{
		files: map[int32]*heap.File{},
		pages: map[types.PageID]*heap.Page{},
	}
	for _, hf := range files {
		tp.files[hf.ID()] = hf
	}
	return tp
}

func (tp *testPool) GetPage(tid types.TransactionID, pid types.PageID,
	perm types.Permissions) (*heap.Page, error) {

	if p, ok := tp.pages[pid]; ok {
		return p, nil
	}
	hf, ok := tp.files[pid.TableID]
	if !ok {
		return nil, types.ErrNotFound
	}
	p, err := hf.ReadPage(pid)
	if err != nil {
		return nil, err
	}
	tp.pages[pid] = p
	return p, nil
}

func TestTableID(t *testing.T) {
	a, err := heap.TableID("testdata/t.dat")
	if err != nil {
		t.Fatal(err)
	}
	b, err := heap.TableID("testdata/t.dat")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("TableID is not deterministic: %d != %d", a, b)
	}

	c, err := heap.TableID("testdata/u.dat")
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Fatal("different paths produced the same table id")
	}
}

func TestReadPageZeroFill(t *testing.T) {
	desc := testutil.IntTupleDesc(t, 1)
	hf, err := heap.OpenFile(filepath.Join(t.TempDir(), "t.dat"), desc, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer hf.Close()

	n, err := hf.NumPages()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("empty file: NumPages got %d want 0", n)
	}

	// Reading past the end of the file yields an empty page.
	p, err := hf.ReadPage(types.PageID{TableID: hf.ID(), PageNo: 5})
	if err != nil {
		t.Fatal(err)
	}
	if p.NumEmptySlots() != p.NumSlots() {
		t.Fatal("page past end of file is not empty")
	}

	// A page of another table is rejected.
	_, err = hf.ReadPage(types.PageID{TableID: hf.ID() + 1, PageNo: 0})
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("foreign page got %v want ErrNotFound", err)
	}
}

func TestWriteReadPage(t *testing.T) {
	desc := testutil.IntTupleDesc(t, 1)
	hf, err := heap.OpenFile(filepath.Join(t.TempDir(), "t.dat"), desc, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer hf.Close()

	pid := types.PageID{TableID: hf.ID(), PageNo: 2}
	p := heap.NewEmptyPage(pid, desc, 64)
	err = p.InsertTuple(testutil.IntTuple(t, desc, 77))
	if err != nil {
		t.Fatal(err)
	}
	err = hf.WritePage(p)
	if err != nil {
		t.Fatal(err)
	}

	// Writing page 2 extends the file to three pages.
	n, err := hf.NumPages()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("NumPages got %d want 3", n)
	}

	q, err := hf.ReadPage(pid)
	if err != nil {
		t.Fatal(err)
	}
	tup, err := q.Tuple(0)
	if err != nil {
		t.Fatal(err)
	}
	if tup == nil || !tup.EqualFields(testutil.IntTuple(t, desc, 77)) {
		t.Fatalf("read back %s want 77", tup)
	}
}

func TestInsertSpill(t *testing.T) {
	desc := testutil.IntTupleDesc(t, 1)
	hf, err := heap.OpenFile(filepath.Join(t.TempDir(), "t.dat"), desc, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer hf.Close()
	tp := newTestPool(hf)

	numSlots := heap.NumSlots(desc, 64)
	for i := 0; i <= numSlots; i++ {
		dirtied, err := hf.InsertTuple(tp, 1, testutil.IntTuple(t, desc, int32(i)))
		if err != nil {
			t.Fatal(err)
		}
		if len(dirtied) != 1 {
			t.Fatalf("insert %d dirtied %d pages", i, len(dirtied))
		}
		tp.pages[dirtied[0].ID()] = dirtied[0]
	}

	// One more tuple than fits on a page spills onto a second page.
	n, err := hf.NumPages()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("NumPages got %d want 2", n)
	}

	p1, err := tp.GetPage(1, types.PageID{TableID: hf.ID(), PageNo: 1}, types.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	if p1.NumEmptySlots() != p1.NumSlots()-1 {
		t.Fatalf("second page: got %d empty slots want %d", p1.NumEmptySlots(),
			p1.NumSlots()-1)
	}
}

func TestDeleteTupleThroughFile(t *testing.T) {
	desc := testutil.IntTupleDesc(t, 1)
	hf := testutil.MakeHeapFile(t, t.TempDir(), "t.dat", desc, 64,
		[][]int32{{1}, {2}, {3}})
	defer hf.Close()
	tp := newTestPool(hf)

	it := hf.Iterator(tp, 1)
	if err := it.Open(); err != nil {
		t.Fatal(err)
	}
	tup, err := it.Next()
	if err != nil {
		t.Fatal(err)
	}
	it.Close()

	p, err := hf.DeleteTuple(tp, 1, tup)
	if err != nil {
		t.Fatal(err)
	}
	if p.NumEmptySlots() != p.NumSlots()-2 {
		t.Fatalf("after delete: got %d empty slots want %d", p.NumEmptySlots(),
			p.NumSlots()-2)
	}

	_, err = hf.DeleteTuple(tp, 1, testutil.IntTuple(t, desc, 9))
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("delete without record id got %v want ErrNotFound", err)
	}
}

func TestFileIterator(t *testing.T) {
	desc := testutil.IntTupleDesc(t, 1)

	var rows [][]int32
	for i := int32(0); i < 40; i++ {
		rows = append(rows, []int32{i})
	}
	hf := testutil.MakeHeapFile(t, t.TempDir(), "t.dat", desc, 64, rows)
	defer hf.Close()

	n, err := hf.NumPages()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("NumPages got %d want 3", n)
	}

	it := hf.Iterator(newTestPool(hf), 1)

	// Not open yet.
	_, err = it.HasNext()
	if err == nil {
		t.Fatal("HasNext before Open did not fail")
	}

	if err = it.Open(); err != nil {
		t.Fatal(err)
	}
	for pass := 0; pass < 2; pass++ {
		for i := int32(0); i < 40; i++ {
			tup, err := it.Next()
			if err != nil {
				t.Fatal(err)
			}
			if !tup.EqualFields(testutil.IntTuple(t, desc, i)) {
				t.Fatalf("pass %d row %d: got %s", pass, i, tup)
			}
		}
		ok, err := it.HasNext()
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("iterator did not exhaust after 40 rows")
		}
		_, err = it.Next()
		if !errors.Is(err, types.ErrNotFound) {
			t.Fatalf("Next past end got %v want ErrNotFound", err)
		}

		if err = it.Rewind(); err != nil {
			t.Fatal(err)
		}
	}
	it.Close()
}
