package exec

import (
	"github.com/catamtz3/cse444-simpledb/catalog"
	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/types"
)

// SeqScan reads every tuple of a table in page order on behalf of one
// transaction. Field names in its schema are prefixed with the table alias.
type SeqScan struct {
	pool    Pool
	catalog *catalog.Catalog
	tid     types.TransactionID
	tableID int32
	alias   string
	desc    *types.TupleDesc
	it      *heap.FileIterator
}

func NewSeqScan(pool Pool, cat *catalog.Catalog, tid types.TransactionID,
	tableID int32, alias string) (*SeqScan, error) {

	hf, err := cat.File(tableID)
	if err != nil {
		return nil, err
	}

	base := hf.TupleDesc()
	fieldTypes := make([]types.Type, base.NumFields())
	names := make([]string, base.NumFields())
	for i := 0; i < base.NumFields(); i++ {
		ft, _ := base.FieldType(i)
		fn, _ := base.FieldName(i)
		fieldTypes[i] = ft
		if alias != "" {
			fn = alias + "." + fn
		}
		names[i] = fn
	}
	desc, err := types.NewTupleDesc(fieldTypes, names)
	if err != nil {
		return nil, err
	}

	return &SeqScan{
		pool:    pool,
		catalog: cat,
		tid:     tid,
		tableID: tableID,
		alias:   alias,
		desc:    desc,
		it:      hf.Iterator(pool, tid),
	}, nil
}

func (ss *SeqScan) Open() error {
	return ss.it.Open()
}

func (ss *SeqScan) HasNext() (bool, error) {
	return ss.it.HasNext()
}

func (ss *SeqScan) Next() (*types.Tuple, error) {
	return ss.it.Next()
}

func (ss *SeqScan) Rewind() error {
	return ss.it.Rewind()
}

func (ss *SeqScan) Close() error {
	return ss.it.Close()
}

func (ss *SeqScan) TupleDesc() *types.TupleDesc {
	return ss.desc
}

func (ss *SeqScan) Children() []OpIterator {
	return nil
}
