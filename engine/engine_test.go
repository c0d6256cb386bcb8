package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/catamtz3/cse444-simpledb/engine"
	"github.com/catamtz3/cse444-simpledb/exec"
	"github.com/catamtz3/cse444-simpledb/testutil"
	"github.com/catamtz3/cse444-simpledb/types"
)

func testConfig(dir string) engine.Config {
	return engine.Config{
		DataDir:        dir,
		PageSize:       1024,
		BufferPages:    4,
		LockWait:       10 * time.Millisecond,
		LockWaitRounds: 2,
		EvictSeed:      1,
	}
}

func createInts(t *testing.T, eng *engine.Engine, name string, n int) int32 {
	t.Helper()

	fieldTypes := make([]types.Type, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		fieldTypes[i] = types.IntType
		names[i] = string(rune('a' + i))
	}
	hf, err := eng.CreateTable(name, fieldTypes, names, names[0])
	if err != nil {
		t.Fatal(err)
	}
	return hf.ID()
}

func insertRow(t *testing.T, eng *engine.Engine, tid types.TransactionID,
	tableID int32, vals ...int32) {

	t.Helper()

	desc, err := eng.Catalog().TupleDesc(tableID)
	if err != nil {
		t.Fatal(err)
	}
	err = eng.Pool().InsertTuple(tid, tableID, testutil.IntTuple(t, desc, vals...))
	if err != nil {
		t.Fatal(err)
	}
}

func scanRows(t *testing.T, eng *engine.Engine, tid types.TransactionID,
	tableID int32) [][]int32 {

	t.Helper()

	ss, err := exec.NewSeqScan(eng.Pool(), eng.Catalog(), tid, tableID, "")
	if err != nil {
		t.Fatal(err)
	}
	if err = ss.Open(); err != nil {
		t.Fatal(err)
	}
	defer ss.Close()

	var rows [][]int32
	for {
		ok, err := ss.HasNext()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			return rows
		}
		tup, err := ss.Next()
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
		rows = append(rows, row)
	}
}

func TestInsertScanCommit(t *testing.T) {
	eng, err := engine.Open(testConfig(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	tableID := createInts(t, eng, "nums", 2)

	tid := eng.Begin()
	insertRow(t, eng, tid, tableID, 1, 10)
	insertRow(t, eng, tid, tableID, 2, 20)
	if err = eng.Commit(tid); err != nil {
		t.Fatal(err)
	}

	tid = eng.Begin()
	rows := scanRows(t, eng, tid, tableID)
	if len(rows) != 2 || rows[0][0] != 1 || rows[1][1] != 20 {
		t.Fatalf("scan got %v", rows)
	}
	if err = eng.Commit(tid); err != nil {
		t.Fatal(err)
	}
	if err = eng.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAbortUndoes(t *testing.T) {
	eng, err := engine.Open(testConfig(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()
	tableID := createInts(t, eng, "nums", 1)

	// Commit a baseline row so the page exists on disk.
	tid := eng.Begin()
	insertRow(t, eng, tid, tableID, 1)
	if err = eng.Commit(tid); err != nil {
		t.Fatal(err)
	}
	if err = eng.Pool().FlushAllPages(); err != nil {
		t.Fatal(err)
	}

	tid = eng.Begin()
	insertRow(t, eng, tid, tableID, 2)
	if got := scanRows(t, eng, tid, tableID); len(got) != 2 {
		t.Fatalf("inside transaction: scan got %v", got)
	}
	if err = eng.Abort(tid); err != nil {
		t.Fatal(err)
	}

	tid = eng.Begin()
	if got := scanRows(t, eng, tid, tableID); len(got) != 1 || got[0][0] != 1 {
		t.Fatalf("after abort: scan got %v want the baseline row", got)
	}
	if err = eng.Commit(tid); err != nil {
		t.Fatal(err)
	}
}

func TestConflictAborts(t *testing.T) {
	eng, err := engine.Open(testConfig(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()
	tableID := createInts(t, eng, "nums", 1)

	tid := eng.Begin()
	insertRow(t, eng, tid, tableID, 1)
	if err = eng.Commit(tid); err != nil {
		t.Fatal(err)
	}

	t1 := eng.Begin()
	insertRow(t, eng, t1, tableID, 2)

	t2 := eng.Begin()
	desc, err := eng.Catalog().TupleDesc(tableID)
	if err != nil {
		t.Fatal(err)
	}
	err = eng.Pool().InsertTuple(t2, tableID, testutil.IntTuple(t, desc, 3))
	if !errors.Is(err, types.ErrTransactionAborted) {
		t.Fatalf("conflicting insert got %v want ErrTransactionAborted", err)
	}
	if err = eng.Abort(t2); err != nil {
		t.Fatal(err)
	}
	if err = eng.Commit(t1); err != nil {
		t.Fatal(err)
	}

	tid = eng.Begin()
	if got := scanRows(t, eng, tid, tableID); len(got) != 2 {
		t.Fatalf("after conflict: scan got %v", got)
	}
	if err = eng.Commit(tid); err != nil {
		t.Fatal(err)
	}
}

func TestRestartReloadsCatalog(t *testing.T) {
	dir := t.TempDir()

	eng, err := engine.Open(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	tableID := createInts(t, eng, "nums", 2)

	tid := eng.Begin()
	insertRow(t, eng, tid, tableID, 7, 70)
	if err = eng.Commit(tid); err != nil {
		t.Fatal(err)
	}
	if err = eng.Close(); err != nil {
		t.Fatal(err)
	}

	eng, err = engine.Open(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	id, err := eng.Catalog().TableID("nums")
	if err != nil {
		t.Fatal(err)
	}
	if id != tableID {
		t.Fatalf("table id changed across restart: %d != %d", id, tableID)
	}

	tid = eng.Begin()
	got := scanRows(t, eng, tid, id)
	if len(got) != 1 || got[0][0] != 7 || got[0][1] != 70 {
		t.Fatalf("after restart: scan got %v", got)
	}
	if err = eng.Commit(tid); err != nil {
		t.Fatal(err)
	}
}
